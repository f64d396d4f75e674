package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eldris/minder/internal/config"
	"github.com/eldris/minder/internal/loop"
	"github.com/eldris/minder/internal/state"
)

var runMaxIterations int

// runAgent overrides the agent used by the run command. Tests inject a mock
// here; production builds an exec-based agent from config.
var runAgent loop.Agent

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervision loop in the current directory",
	Long: `Runs the iteration loop: checks the task ledger and completion marker,
invokes the agent once per iteration, and stops on completion, the kill
switch, an interrupt, or the iteration ceiling.

Exit codes: 0 session complete, 1 fatal error before or during the loop,
2 iteration ceiling reached with an incomplete ledger, 3 kill switch,
130 interrupted.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0,
		"ceiling on agent invocations (overrides config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	store := state.NewStore(cwd)

	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	maxIterations := cfg.Limits.MaxIterations
	if cmd.Flags().Changed("max-iterations") {
		maxIterations = runMaxIterations
	}
	if maxIterations <= 0 {
		return fmt.Errorf("max iterations must be a positive integer, got %d", maxIterations)
	}

	agent := runAgent
	if agent == nil {
		agent = &loop.ExecAgent{
			Command:      cfg.Agent.Command,
			SettingsPath: store.SettingsPath(),
			ExtraArgs:    cfg.Agent.ExtraArgs,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctl := loop.NewController(loop.Options{
		Store:         store,
		Agent:         agent,
		MaxIterations: maxIterations,
		Pause:         time.Duration(cfg.Limits.IterationPauseSeconds) * time.Second,
		Echo:          cmd.OutOrStdout(),
	})

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: supervising %s (max %d iterations)\n",
		ctl.RunID(), cwd, maxIterations)

	result := ctl.Run(ctx)
	if result.Error != nil {
		return result.Error
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stopped after %d iteration(s): %s\n",
		result.Iterations, result.Reason)

	switch result.Reason {
	case loop.StopReasonTasksComplete, loop.StopReasonMarkerFound:
		return nil
	case loop.StopReasonMaxIterations:
		return &ExitError{Code: 2}
	case loop.StopReasonStopRequested:
		return &ExitError{Code: 3}
	case loop.StopReasonInterrupted:
		return &ExitError{Code: 130}
	default:
		return &ExitError{Code: 1, Msg: fmt.Sprintf("loop stopped with unknown reason after %d iterations", result.Iterations)}
	}
}
