package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/config"
	"github.com/skillgate/skillgate/internal/rules"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List the skills defined under the skills root",
	Args:  cobra.NoArgs,
	RunE:  listSkills,
}

func init() {
	rootCmd.AddCommand(skillsCmd)
}

func listSkills(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	root := cfg.SkillsRoot()

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read skills root %s: %w", root, err)
	}

	type row struct {
		name     string
		strategy string
		rules    int
		custom   bool
		err      error
	}

	var rows []row
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, rules.SkillFileName)); err != nil {
			continue
		}

		skill, err := rules.Load(dir)
		if err != nil {
			rows = append(rows, row{name: entry.Name(), err: err})
			continue
		}
		rows = append(rows, row{
			name:     skill.Name,
			strategy: string(skill.Strategy),
			rules:    len(skill.Rules),
			custom:   skill.CustomValidate != "",
		})
	}

	if len(rows) == 0 {
		fmt.Printf("No skills found under %s.\n", root)
		return nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	fmt.Printf("%-24s %-10s %-6s %s\n", "SKILL", "STRATEGY", "RULES", "CUSTOM")
	fmt.Println(strings.Repeat("-", 56))
	for _, r := range rows {
		if r.err != nil {
			fmt.Printf("%-24s invalid: %v\n", r.name, r.err)
			continue
		}
		custom := "no"
		if r.custom {
			custom = "yes"
		}
		fmt.Printf("%-24s %-10s %-6d %s\n", r.name, r.strategy, r.rules, custom)
	}
	return nil
}
