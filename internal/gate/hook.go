package gate

import (
	"encoding/json"
	"fmt"
	"io"
)

// HookEvent is one PreToolUse event as delivered by the agent runtime on
// stdin.
type HookEvent struct {
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
}

// ToolInput carries the composed command text for Bash tool calls.
type ToolInput struct {
	Command string `json:"command"`
}

// blockResponse is the decision JSON the agent runtime acts on. Anything
// other than this on stdout means allow.
type blockResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// RunHook reads one PreToolUse event from in, classifies it, and writes a
// block decision to out when denied. Allows are silent. The returned error
// is always nil in spirit: unreadable or malformed input fails open, and the
// caller should exit 0 regardless — the agent runtime treats a non-zero
// hook exit as its own failure mode, not as a decision.
func (g *Gate) RunHook(in io.Reader, out io.Writer, auditor *Auditor) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil
	}

	var event HookEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil
	}

	// Only Bash actions are gated; other tools are governed by the agent's
	// own permission configuration.
	if event.ToolName != "Bash" || event.ToolInput.Command == "" {
		return nil
	}

	d := g.Evaluate(event.ToolInput.Command)
	auditor.Record(event.ToolInput.Command, d)

	if !d.Allow {
		resp, err := json.Marshal(blockResponse{Decision: "block", Reason: d.Reason})
		if err != nil {
			return nil
		}
		fmt.Fprintln(out, string(resp))
	}

	return nil
}
