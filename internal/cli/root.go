package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "minder",
	Short: "Bounded supervisor for autonomous coding agent sessions",
	Long: `Minder supervises an unattended coding agent against a fixed task
ledger: it invokes the agent once per iteration, gates every destructive
command the agent attempts, and stops when the ledger completes, the agent
writes the completion marker, or the iteration ceiling is reached.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("minder version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitError carries a distinct process exit code for a run outcome that is
// not an error in itself (iteration ceiling, kill switch, interrupt).
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}
