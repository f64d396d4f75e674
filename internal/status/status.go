// Package status is the read-only projection of a supervised session: it
// loads the ledger and the iteration log directory and derives
// human-readable progress. It never writes and never influences the loop.
package status

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/eldris/minder/internal/state"
)

// Phase summarizes where a session is, derived from log recency and content
// as well as ledger state — ledger state alone cannot distinguish "nothing
// has run" from "running with no progress".
const (
	PhaseNotStarted = "not-started"
	PhaseComplete   = "complete"
	PhaseWorking    = "working"
	PhaseNoProgress = "no-progress"
	PhaseStalled    = "stalled"
)

// flatWindow is how many trailing iterations with an unchanged passing
// count mark a session as making no progress.
const flatWindow = 3

// tailLines is how much of the latest transcript a snapshot carries.
const tailLines = 10

// Snapshot is one point-in-time view of a session.
type Snapshot struct {
	Tasks       []state.Task
	Passing     int
	Total       int
	Progress    float64 // 0..1
	MarkerFound bool
	Records     []state.IterationRecord
	Tail        []string // tail of the most recent transcript
	Phase       string
	LedgerErr   error // transient parse gap while polling, not fatal
}

// Iterations returns the highest iteration number seen.
func (s Snapshot) Iterations() int {
	if len(s.Records) == 0 {
		return 0
	}
	return s.Records[len(s.Records)-1].Iteration
}

// Collect builds a Snapshot. All reads are tolerant: a project where
// .minder/ does not exist yet renders as not-started, and a ledger caught
// mid-write surfaces as a LedgerErr display gap rather than a failure.
func Collect(store *state.Store) Snapshot {
	var snap Snapshot

	tasks, err := store.LoadTasks()
	if err != nil {
		snap.LedgerErr = err
	} else {
		snap.Tasks = tasks
		snap.Passing = state.CountPassing(tasks)
		snap.Total = len(tasks)
		if snap.Total > 0 {
			snap.Progress = float64(snap.Passing) / float64(snap.Total)
		}
	}

	if marker, err := store.HasCompletionMarker(); err == nil {
		snap.MarkerFound = marker
	}

	if records, err := store.LoadIterationRecords(); err == nil {
		snap.Records = records
	}

	if len(snap.Records) > 0 {
		last := snap.Records[len(snap.Records)-1]
		snap.Tail = readTail(filepath.Join(store.LogsDir(), last.Transcript), tailLines)
	}

	snap.Phase = derivePhase(snap)
	return snap
}

func derivePhase(s Snapshot) string {
	if s.MarkerFound || (s.LedgerErr == nil && state.AllPass(s.Tasks)) {
		return PhaseComplete
	}
	if len(s.Records) == 0 {
		return PhaseNotStarted
	}

	last := s.Records[len(s.Records)-1]
	if last.ExitCode != 0 {
		return PhaseStalled
	}

	if len(s.Records) >= flatWindow {
		recent := s.Records[len(s.Records)-flatWindow:]
		flat := true
		for _, rec := range recent[1:] {
			if rec.Passing != recent[0].Passing {
				flat = false
				break
			}
		}
		if flat {
			return PhaseNoProgress
		}
	}

	return PhaseWorking
}

// readTail returns the last n lines of a file, best-effort.
func readTail(path string, n int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t"))
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines
}
