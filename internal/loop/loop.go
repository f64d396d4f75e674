// Package loop implements the iteration controller: the top-level state
// machine that decides from durable state whether work remains, invokes the
// agent exactly once per iteration, and stops on any of the independent
// termination signals.
package loop

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/eldris/minder/internal/logging"
	"github.com/eldris/minder/internal/state"
	"github.com/eldris/minder/internal/tui"
)

// StopReason indicates why the controller stopped.
type StopReason int

const (
	StopReasonUnknown       StopReason = iota
	StopReasonTasksComplete            // Every ledger task passes
	StopReasonMarkerFound              // Completion marker present in progress narrative
	StopReasonMaxIterations            // Hit the invocation ceiling
	StopReasonStopRequested            // Kill-switch file present
	StopReasonInterrupted              // Context cancelled (signal)
)

// String returns the stable identifier for the stop reason.
func (r StopReason) String() string {
	switch r {
	case StopReasonTasksComplete:
		return "tasks-complete"
	case StopReasonMarkerFound:
		return "marker-found"
	case StopReasonMaxIterations:
		return "max-iterations"
	case StopReasonStopRequested:
		return "stop-requested"
	case StopReasonInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a controller run.
type Result struct {
	Reason     StopReason
	Iterations int
	Error      error
}

// Options holds configuration for creating a Controller. Store and Agent
// are required; the rest default sensibly.
type Options struct {
	Store         *state.Store
	Agent         Agent
	MaxIterations int
	Pause         time.Duration // settle time between iterations
	RunID         string        // defaults to a fresh UUID
	Echo          io.Writer     // optional live tee of the transcript
	Logger        *logging.Logger
	Now           func() time.Time // for deterministic timestamps in tests
}

// Controller runs the supervision loop. It holds no authoritative state of
// its own: every control decision re-reads the ledger and marker from disk.
type Controller struct {
	store         *state.Store
	agent         Agent
	maxIterations int
	pause         time.Duration
	runID         string
	echo          io.Writer
	log           *logging.Logger
	now           func() time.Time

	iteration int
	prevTasks []state.Task
}

// NewController creates a Controller from options.
func NewController(opts Options) *Controller {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := opts.Logger
	if log == nil {
		log = logging.With("run_id", runID)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:         opts.Store,
		agent:         opts.Agent,
		maxIterations: opts.MaxIterations,
		pause:         opts.Pause,
		runID:         runID,
		echo:          opts.Echo,
		log:           log,
		now:           now,
	}
}

// RunID returns the identifier stamped into this run's iteration records.
func (c *Controller) RunID() string {
	return c.runID
}

// Run executes the loop until a termination condition is met. Pre-flight
// failures (missing inputs, malformed ledger, invalid bound) return with
// zero invocations performed and the error set.
func (c *Controller) Run(ctx context.Context) Result {
	if c.maxIterations <= 0 {
		return Result{Error: fmt.Errorf("max iterations must be a positive integer, got %d", c.maxIterations)}
	}
	if err := c.store.CheckRequired(); err != nil {
		return Result{Error: err}
	}
	tasks, err := c.store.LoadTasks()
	if err != nil {
		return Result{Error: err}
	}
	prompt, err := c.store.LoadPrompt()
	if err != nil {
		return Result{Error: err}
	}
	if err := c.store.EnsureLogsDir(); err != nil {
		return Result{Error: err}
	}
	c.prevTasks = tasks

	c.log.Info("run starting",
		"tasks", len(tasks),
		"passing", state.CountPassing(tasks),
		"max_iterations", c.maxIterations)

	for {
		reason, err := c.checkTermination(ctx)
		if err != nil {
			return Result{Iterations: c.iteration, Error: err}
		}
		if reason != StopReasonUnknown {
			return Result{Reason: reason, Iterations: c.iteration}
		}

		c.iteration++
		c.invoke(ctx, prompt)

		// PostCheck: a session that completes its final task stops this
		// iteration instead of burning an idle pass.
		reason, err = c.checkTermination(ctx)
		if err != nil {
			return Result{Iterations: c.iteration, Error: err}
		}
		if reason != StopReasonUnknown {
			return Result{Reason: reason, Iterations: c.iteration}
		}

		c.settle(ctx)
	}
}

// checkTermination re-reads durable state and evaluates the termination
// signals in order. Both the ledger and the marker are independent terminal
// channels; either suffices. A ledger that fails to load mid-run, or a
// passes flag that regressed since the previous read, is corruption and
// aborts the session.
func (c *Controller) checkTermination(ctx context.Context) (StopReason, error) {
	tasks, err := c.store.LoadTasks()
	if err != nil {
		return StopReasonUnknown, err
	}
	if id := state.DetectRegression(c.prevTasks, tasks); id >= 0 {
		return StopReasonUnknown, fmt.Errorf("%w: task %d regressed from passing", state.ErrMalformedLedger, id)
	}
	c.prevTasks = tasks

	if state.AllPass(tasks) {
		return StopReasonTasksComplete, nil
	}

	marker, err := c.store.HasCompletionMarker()
	if err != nil {
		return StopReasonUnknown, err
	}
	if marker {
		return StopReasonMarkerFound, nil
	}

	if ctx.Err() != nil {
		return StopReasonInterrupted, nil
	}
	if c.store.StopRequested() {
		return StopReasonStopRequested, nil
	}
	if c.iteration >= c.maxIterations {
		return StopReasonMaxIterations, nil
	}
	return StopReasonUnknown, nil
}

// invoke runs exactly one agent invocation, capturing the full transcript
// and appending an iteration record. A failed invocation is recoverable:
// it is written to the record and the loop re-evaluates the ledger as-is.
func (c *Controller) invoke(ctx context.Context, prompt string) {
	started := c.now()
	transcriptPath := c.store.TranscriptPath(c.iteration, started)

	guard := tui.CaptureTerminal()
	defer guard.Restore()

	exitCode := -1
	var invokeErr error

	f, err := os.Create(transcriptPath)
	if err != nil {
		invokeErr = fmt.Errorf("failed to create transcript: %w", err)
	} else {
		var out io.Writer = f
		if c.echo != nil {
			out = io.MultiWriter(f, c.echo)
		}
		exitCode, invokeErr = c.agent.Invoke(ctx, prompt, c.store.BasePath(), out)
		if invokeErr != nil {
			fmt.Fprintf(f, "\n[minder] invocation error: %v\n", invokeErr)
		}
		f.Close()
	}

	guard.Restore()
	finished := c.now()

	// Counts for the index record. This read is informational; the
	// authoritative re-validation happens in the post-invocation check.
	passing, total := 0, 0
	if tasks, err := c.store.LoadTasks(); err == nil {
		passing, total = state.CountPassing(tasks), len(tasks)
	}

	rec := state.IterationRecord{
		RunID:      c.runID,
		Iteration:  c.iteration,
		StartedAt:  started.UTC().Format(time.RFC3339),
		FinishedAt: finished.UTC().Format(time.RFC3339),
		ExitCode:   exitCode,
		Transcript: filepath.Base(transcriptPath),
		Passing:    passing,
		Total:      total,
	}
	if err := c.store.AppendIterationRecord(rec); err != nil {
		c.log.Warn("failed to append iteration record", "iteration", c.iteration, "error", err)
	}

	switch {
	case invokeErr != nil:
		c.log.Warn("agent invocation failed", "iteration", c.iteration, "error", invokeErr)
	case exitCode != 0:
		c.log.Warn("agent exited non-zero", "iteration", c.iteration, "exit_code", exitCode)
	default:
		c.log.Info("iteration complete", "iteration", c.iteration, "passing", passing, "total", total)
	}
}

// settle pauses between iterations to pace invocations and let asynchronous
// side effects land before the ledger is re-read. Aborts promptly on
// interrupt; the next termination check observes the cancellation.
func (c *Controller) settle(ctx context.Context) {
	if c.pause <= 0 {
		return
	}
	t := time.NewTimer(c.pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
