package tui

import (
	"os"

	"golang.org/x/term"
)

// StateGuard snapshots interactive terminal state so it can be restored
// after an agent invocation, whatever the invocation did to it.
type StateGuard struct {
	fd    int
	state *term.State
}

// CaptureTerminal captures the current terminal state of stdin. When stdin
// is not a terminal (tests, pipes, CI) the guard is a no-op.
func CaptureTerminal() *StateGuard {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return &StateGuard{fd: -1}
	}
	st, err := term.GetState(fd)
	if err != nil {
		return &StateGuard{fd: -1}
	}
	return &StateGuard{fd: fd, state: st}
}

// Restore puts the terminal back into its captured state. Safe to call
// multiple times and on a no-op guard.
func (g *StateGuard) Restore() {
	if g == nil || g.state == nil {
		return
	}
	term.Restore(g.fd, g.state)
	g.state = nil
}
