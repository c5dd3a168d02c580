// Package cli wires the skillgate commands. Every command maps its
// outcome onto the process exit code: 0 pass, 1 policy failure, 2
// usage fault, 3 infrastructure fault.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillgate/skillgate/internal/session"
	"github.com/skillgate/skillgate/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "skillgate",
	Short: "Skillgate - data-driven quality gates for multi-project workspaces",
	Long: `Skillgate enforces code-quality skills across the projects of a
workspace. Each skill declares structural rules, run through an AST
scan tool, and custom validator scripts; violation counts are compared
against a per-skill baseline so quality can only ratchet forward.

Example:
  skillgate validate no-print --mode strict`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a non-zero exit code out of a command that already
// reported its result.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return session.ExitPass
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	return session.CodeFor(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .skillgate.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().String("root", "", "workspace root (default is the working directory)")
	rootCmd.PersistentFlags().String("skills-root", "", "skills directory relative to the workspace root")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("workspace.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("workspace.skills_root", rootCmd.PersistentFlags().Lookup("skills-root"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".skillgate")
	}

	viper.SetEnvPrefix("SKILLGATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug("using config file", "path", viper.ConfigFileUsed())
	}

	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
}
