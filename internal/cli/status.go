package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/eldris/minder/internal/state"
	"github.com/eldris/minder/internal/status"
	"github.com/eldris/minder/internal/tui"
)

var (
	statusWatch    bool
	statusInterval time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session progress",
	Long: `Shows passing/total task counts, the session phase, and the tail of the
latest iteration transcript. Read-only: safe to run at any time, including
concurrently with a running loop.

With --watch, renders a live dashboard that refreshes on a fixed interval.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "live dashboard, refreshed on an interval")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", tui.DefaultWatchInterval, "refresh interval for --watch")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	store := state.NewStore(cwd)

	if statusWatch {
		p := tea.NewProgram(tui.NewWatchModel(store, statusInterval))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("watch dashboard failed: %w", err)
		}
		return nil
	}

	renderSnapshot(cmd.OutOrStdout(), status.Collect(store))
	return nil
}

func renderSnapshot(w io.Writer, snap status.Snapshot) {
	fmt.Fprintln(w, "Session Status")
	fmt.Fprintln(w, "==============")
	fmt.Fprintln(w)

	printField(w, "Phase", snap.Phase)
	if snap.LedgerErr != nil {
		printField(w, "Ledger", "unreadable (mid-write or malformed)")
	} else {
		printField(w, "Tasks", fmt.Sprintf("%d/%d passing", snap.Passing, snap.Total))
	}
	printField(w, "Iterations", fmt.Sprintf("%d", snap.Iterations()))
	if snap.MarkerFound {
		printField(w, "Marker", state.CompletionMarker)
	}

	if len(snap.Records) > 0 {
		last := snap.Records[len(snap.Records)-1]
		printField(w, "Last exit", fmt.Sprintf("%d", last.ExitCode))
		printField(w, "Last activity", last.FinishedAt)
	}

	if len(snap.Tasks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tasks")
		fmt.Fprintln(w, "-----")
		for _, t := range snap.Tasks {
			marker := " "
			if t.Passes {
				marker = "x"
			}
			fmt.Fprintf(w, "  [%s] %3d  %s\n", marker, t.ID, t.Description)
		}
	}

	if len(snap.Tail) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Latest transcript")
		fmt.Fprintln(w, "-----------------")
		for _, line := range snap.Tail {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-14s %s\n", label+":", value)
}
