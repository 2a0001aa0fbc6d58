// Package commands implements the smackdown CLI commands.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/smackdown/pkg/version"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitNotCovered = 2
)

// ErrNotCovered is returned by check when the diff adds lines the tests never
// executed, or touches files the coverage report does not know.
var ErrNotCovered = errors.New("diff is not completely covered")

// ExitCode maps a command error onto the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNotCovered):
		return ExitNotCovered
	default:
		return ExitError
	}
}

// NewRootCommand builds the smackdown command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smackdown",
		Short: "Report added lines that tests never executed",
		Long: `smackdown correlates a line coverage report with the git diff between a
branch and its merge base, and lists every added line the tests missed.

Commands:
  check     Judge the diff of a repository against a coverage report`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress the report; only the exit code tells the verdict")

	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())

			return err
		},
	}
}
