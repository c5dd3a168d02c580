package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/config"
	"github.com/skillgate/skillgate/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [skill]",
	Short: "Show recent validation runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "maximum number of runs to show")
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	skill := ""
	if len(args) == 1 {
		skill = args[0]
	}
	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := store.Recent(skill, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Printf("%-20s %-20s %-10s %-8s %-6s %s\n", "WHEN", "SKILL", "MODE", "RESULT", "TOTAL", "PROJECTS")
	fmt.Println(strings.Repeat("-", 80))
	for _, e := range entries {
		result := "fail"
		if e.Passed {
			result = "pass"
		}
		fmt.Printf("%-20s %-20s %-10s %-8s %-6d %d\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Skill, e.Mode, result, e.Total, e.Projects)
	}
	return nil
}
