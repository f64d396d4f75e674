package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldris/minder/internal/state"
)

func newProject(t *testing.T, tasks []state.Task) *state.Store {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".minder"), 0o755))
	store := state.NewStore(dir)

	require.NoError(t, os.WriteFile(store.PromptPath(), []byte("complete the next task"), 0o644))
	require.NoError(t, os.WriteFile(store.SettingsPath(), []byte(`{"permissions":{"deny":[]}}`), 0o644))
	writeTasks(t, store, tasks)
	return store
}

func writeTasks(t *testing.T, store *state.Store, tasks []state.Task) {
	t.Helper()
	data, err := json.MarshalIndent(tasks, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.TasksPath(), data, 0o644))
}

func makeTasks(n int) []state.Task {
	tasks := make([]state.Task, n)
	for i := range tasks {
		tasks[i] = state.Task{
			ID:          i + 1,
			Category:    state.CategoryCore,
			Description: fmt.Sprintf("task %d", i+1),
			Steps:       []string{"do the work", "run the check and confirm it passes"},
		}
	}
	return tasks
}

// flipNextTask marks the first non-passing task as passing, the way the
// agent would after a successful verification.
func flipNextTask(t *testing.T, store *state.Store) {
	t.Helper()
	tasks, err := store.LoadTasks()
	require.NoError(t, err)
	for i := range tasks {
		if !tasks[i].Passes {
			tasks[i].Passes = true
			break
		}
	}
	writeTasks(t, store, tasks)
}

func newController(store *state.Store, agent Agent, maxIterations int) *Controller {
	return NewController(Options{
		Store:         store,
		Agent:         agent,
		MaxIterations: maxIterations,
		Pause:         0,
		RunID:         "test-run",
	})
}

func TestRun_TasksComplete(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(3))

	invocations := 0
	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		invocations++
		fmt.Fprintf(transcript, "iteration %d output\n", invocations)
		flipNextTask(t, store)
		return 0, nil
	}}

	result := newController(store, agent, 10).Run(context.Background())

	require.NoError(t, result.Error)
	assert.Equal(t, StopReasonTasksComplete, result.Reason)
	// The post-invocation check stops the same iteration that completed the
	// final task; no idle pass is burned.
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 3, invocations)
}

func TestRun_MarkerFound(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(2))

	invocations := 0
	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		invocations++
		// The agent declares completion without flipping any flag. The
		// marker is an independent terminal channel; it wins on its own.
		content := "did everything at once\n" + state.CompletionMarker + "\n"
		require.NoError(t, os.WriteFile(store.ProgressPath(), []byte(content), 0o644))
		return 0, nil
	}}

	result := newController(store, agent, 10).Run(context.Background())

	require.NoError(t, result.Error)
	assert.Equal(t, StopReasonMarkerFound, result.Reason)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 1, invocations)
}

func TestRun_MalformedLedgerBeforeLoop(t *testing.T) {
	t.Parallel()

	store := newProject(t, nil)
	require.NoError(t, os.WriteFile(store.TasksPath(), []byte(`[
  {"id": 1, "category": "core", "description": "a", "steps": ["run check"], "passes": false},
  {"id": 1, "category": "core", "description": "b", "steps": ["run check"], "passes": false}
]`), 0o644))

	invocations := 0
	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		invocations++
		return 0, nil
	}}

	result := newController(store, agent, 10).Run(context.Background())

	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, state.ErrMalformedLedger)
	assert.Equal(t, 0, result.Iterations)
	assert.Equal(t, 0, invocations)
}

func TestRun_MissingPromptBeforeLoop(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(1))
	require.NoError(t, os.Remove(store.PromptPath()))

	result := newController(store, &MockAgent{}, 10).Run(context.Background())

	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, state.ErrMissingInput)
	assert.Equal(t, 0, result.Iterations)
}

func TestRun_InvalidIterationBound(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(1))
	result := newController(store, &MockAgent{}, 0).Run(context.Background())

	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "positive integer")
}

func TestRun_MaxIterations(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(5))

	invocations := 0
	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		invocations++
		return 0, nil
	}}

	result := newController(store, agent, 4).Run(context.Background())

	require.NoError(t, result.Error)
	assert.Equal(t, StopReasonMaxIterations, result.Reason)
	assert.Equal(t, 4, result.Iterations)
	assert.Equal(t, 4, invocations)
}

func TestRun_AgentFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(1))

	invocations := 0
	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		invocations++
		return 1, nil
	}}

	result := newController(store, agent, 2).Run(context.Background())

	// A crashing agent never aborts the session; the ledger is simply
	// re-evaluated and the next iteration retries.
	require.NoError(t, result.Error)
	assert.Equal(t, StopReasonMaxIterations, result.Reason)
	assert.Equal(t, 2, invocations)

	records, err := store.LoadIterationRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].ExitCode)
	assert.Equal(t, 1, records[1].ExitCode)
}

func TestRun_StopRequested(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(1))
	require.NoError(t, os.WriteFile(store.StopPath(), []byte(""), 0o644))

	invocations := 0
	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		invocations++
		return 0, nil
	}}

	result := newController(store, agent, 10).Run(context.Background())

	require.NoError(t, result.Error)
	assert.Equal(t, StopReasonStopRequested, result.Reason)
	assert.Equal(t, 0, invocations)
}

func TestRun_Interrupted(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newController(store, &MockAgent{}, 10).Run(ctx)

	require.NoError(t, result.Error)
	assert.Equal(t, StopReasonInterrupted, result.Reason)
	assert.Equal(t, 0, result.Iterations)
}

func TestRun_RegressionIsCorruption(t *testing.T) {
	t.Parallel()

	tasks := makeTasks(2)
	tasks[0].Passes = true
	store := newProject(t, tasks)

	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		// Flip a passing flag backward; monotonicity says this can only be
		// corruption.
		broken := makeTasks(2)
		writeTasks(t, store, broken)
		return 0, nil
	}}

	result := newController(store, agent, 10).Run(context.Background())

	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, state.ErrMalformedLedger)
	assert.Contains(t, result.Error.Error(), "regressed")
}

func TestRun_CompletedLedgerNeverInvokes(t *testing.T) {
	t.Parallel()

	tasks := makeTasks(2)
	tasks[0].Passes = true
	tasks[1].Passes = true
	store := newProject(t, tasks)

	invocations := 0
	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		invocations++
		return 0, nil
	}}

	// Termination is idempotent: every fresh check over the same state
	// yields the same stop.
	for i := 0; i < 2; i++ {
		result := newController(store, agent, 10).Run(context.Background())
		require.NoError(t, result.Error)
		assert.Equal(t, StopReasonTasksComplete, result.Reason)
		assert.Equal(t, 0, result.Iterations)
	}
	assert.Equal(t, 0, invocations)
}

func TestRun_WritesTranscriptsAndRecords(t *testing.T) {
	t.Parallel()

	store := newProject(t, makeTasks(2))

	agent := &MockAgent{InvokeFunc: func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
		assert.Equal(t, "complete the next task", instructions)
		assert.Equal(t, store.BasePath(), workdir)
		fmt.Fprintln(transcript, "working...")
		flipNextTask(t, store)
		return 0, nil
	}}

	result := newController(store, agent, 10).Run(context.Background())
	require.NoError(t, result.Error)
	assert.Equal(t, StopReasonTasksComplete, result.Reason)

	records, err := store.LoadIterationRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)

	for i, rec := range records {
		assert.Equal(t, "test-run", rec.RunID)
		assert.Equal(t, i+1, rec.Iteration)
		assert.Equal(t, 0, rec.ExitCode)
		assert.Equal(t, i+1, rec.Passing)
		assert.Equal(t, 2, rec.Total)

		data, err := os.ReadFile(filepath.Join(store.LogsDir(), rec.Transcript))
		require.NoError(t, err)
		assert.Contains(t, string(data), "working...")
	}
}

func TestStopReason_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason StopReason
		want   string
	}{
		{StopReasonTasksComplete, "tasks-complete"},
		{StopReasonMarkerFound, "marker-found"},
		{StopReasonMaxIterations, "max-iterations"},
		{StopReasonStopRequested, "stop-requested"},
		{StopReasonInterrupted, "interrupted"},
		{StopReasonUnknown, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.reason.String())
	}
}
