package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/config"
	"github.com/skillgate/skillgate/internal/workspace"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects discovered in the workspace",
	Args:  cobra.NoArgs,
	RunE:  listProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func listProjects(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	locator, err := workspace.Discover(cfg.Workspace.Root)
	if err != nil {
		return err
	}

	projects := locator.Projects()
	fmt.Printf("%-24s %-12s %s\n", "PROJECT", "KIND", "PATH")
	fmt.Println(strings.Repeat("-", 72))
	for _, p := range projects {
		fmt.Printf("%-24s %-12s %s\n", p.Name, p.Kind, p.Path)
	}
	fmt.Printf("\n%d project(s) found.\n", len(projects))
	return nil
}
