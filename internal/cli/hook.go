package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eldris/minder/internal/gate"
	"github.com/eldris/minder/internal/state"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Safety gate entrypoint, registered as the agent's PreToolUse hook",
	Long: `Reads one PreToolUse event as JSON on stdin and classifies the attempted
Bash command against the deny policy. A denied command prints a block
decision on stdout; allowed commands produce no output. Always exits 0 —
the gate fails open on its own errors so a gate bug can never wedge the
agent.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		// Fail open even here; a decision must always be produced.
		return nil
	}
	store := state.NewStore(cwd)

	g := gate.Default()
	auditor := gate.NewAuditor(store.AuditPath())
	if err := g.RunHook(cmd.InOrStdin(), cmd.OutOrStdout(), auditor); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "hook: %v\n", err)
	}
	return nil
}
