package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/config"
	"github.com/skillgate/skillgate/internal/execrun"
	"github.com/skillgate/skillgate/internal/session"
	"github.com/skillgate/skillgate/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [skill]",
	Short: "Validate skills against the workspace",
	Long: `Validate one skill, or every skill with --all.

In baseline mode (the default) a skill passes when violation counts do
not regress from its stored baseline; the first run initializes the
baseline. In strict mode only zero violations pass.

Examples:
  skillgate validate no-print
  skillgate validate --all --mode strict
  skillgate validate no-print --project flext-core --update-baseline`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("all", false, "validate every skill under the skills root")
	validateCmd.Flags().StringArray("project", nil, "restrict scanning to a workspace project (repeatable)")
	validateCmd.Flags().String("mode", "baseline", "validation mode: baseline or strict")
	validateCmd.Flags().Bool("update-baseline", false, "overwrite the baseline with the current counts and pass")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := validator.ParseMode(modeFlag)
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	projects, _ := cmd.Flags().GetStringArray("project")
	updateBaseline, _ := cmd.Flags().GetBool("update-baseline")

	opts := session.Options{
		All:            all,
		Mode:           mode,
		UpdateBaseline: updateBaseline,
		Projects:       projects,
	}
	if len(args) == 1 {
		opts.Skill = args[0]
	}

	s, err := session.New(cfg, execrun.New())
	if err != nil {
		return err
	}
	defer s.Close()

	outcomes, err := s.Run(context.Background(), opts)
	if err != nil {
		return err
	}

	printOutcomes(outcomes)

	if code := session.ExitCode(outcomes); code != session.ExitPass {
		return &exitError{code: code}
	}
	return nil
}

var (
	passMark  = color.New(color.FgGreen, color.Bold).SprintFunc()
	failMark  = color.New(color.FgRed, color.Bold).SprintFunc()
	errorMark = color.New(color.FgYellow, color.Bold).SprintFunc()
)

func printOutcomes(outcomes []session.Outcome) {
	passed := 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			fmt.Fprintf(os.Stderr, "%s  %s: %v\n", errorMark("ERROR"), o.Skill, o.Err)
		case o.Report.Passed:
			passed++
			fmt.Printf("%s   %s: %d violation(s) across %d project(s)\n",
				passMark("PASS"), o.Skill, o.Report.Total, len(o.Report.ProjectsScanned))
		default:
			fmt.Printf("%s   %s: %d violation(s) across %d project(s)\n",
				failMark("FAIL"), o.Skill, o.Report.Total, len(o.Report.ProjectsScanned))
			if cmp := o.Report.BaselineComparison; cmp != nil {
				fmt.Printf("        baseline %d -> current %d (%s)\n",
					cmp.BaselineTotal, cmp.CurrentTotal, cmp.Strategy)
			}
		}
	}
	fmt.Printf("\n%d/%d skill(s) passed.\n", passed, len(outcomes))
}
