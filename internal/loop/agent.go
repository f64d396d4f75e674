package loop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Agent is one bounded execution of the external coding agent. The agent is
// a black box: instructions and a working directory in, an exit code and a
// transcript out. The controller never parses the transcript for intent.
type Agent interface {
	Invoke(ctx context.Context, instructions, workdir string, transcript io.Writer) (exitCode int, err error)
}

// ExecAgent invokes the agent as a local subprocess.
type ExecAgent struct {
	// Command is the agent binary, e.g. "claude".
	Command string
	// SettingsPath points the agent at the settings file carrying the
	// permission denies and the safety-gate hook registration.
	SettingsPath string
	// ExtraArgs are appended to the built invocation.
	ExtraArgs []string
}

// Invoke runs one agent process in non-interactive mode, streaming its
// combined output to the transcript writer line by line. A non-zero exit is
// reported through the exit code, not the error: the caller decides whether
// that is fatal.
func (e *ExecAgent) Invoke(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
	if e.Command == "" {
		return -1, fmt.Errorf("no agent command configured")
	}

	args := []string{"-p", instructions}
	if e.SettingsPath != "" {
		args = append(args, "--settings", e.SettingsPath)
	}
	args = append(args, "--dangerously-skip-permissions")
	args = append(args, e.ExtraArgs...)

	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = workdir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start agent: %w", err)
	}

	// Both streams land in the same transcript; the mutex keeps lines whole.
	var mu sync.Mutex
	writeLine := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(transcript, line)
	}

	errCh := make(chan error, 2)
	stream := func(r io.Reader) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			writeLine(scanner.Text())
		}
		errCh <- scanner.Err()
	}
	go stream(stdout)
	go stream(stderr)

	streamErr1 := <-errCh
	streamErr2 := <-errCh
	waitErr := cmd.Wait()

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("agent failed: %w", waitErr)
	}
	if streamErr1 != nil {
		return 0, fmt.Errorf("failed to stream agent output: %w", streamErr1)
	}
	if streamErr2 != nil {
		return 0, fmt.Errorf("failed to stream agent output: %w", streamErr2)
	}

	return 0, nil
}

// MockAgent is a test double for Agent.
type MockAgent struct {
	// InvokeFunc is called when Invoke is invoked. If nil, Invoke returns
	// exit code 0.
	InvokeFunc func(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error)
}

// Invoke calls the mock function if set.
func (m *MockAgent) Invoke(ctx context.Context, instructions, workdir string, transcript io.Writer) (int, error) {
	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, instructions, workdir, transcript)
	}
	return 0, nil
}
