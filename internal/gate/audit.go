package gate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AuditRecord is one line of the audit trail: the action text, the decision
// taken, and which predicate matched if any.
type AuditRecord struct {
	Time     string `json:"time"`
	Decision string `json:"decision"`
	Tag      string `json:"tag,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Command  string `json:"command"`
	Source   string `json:"source"`
}

// Auditor appends gate decisions to a JSONL file. Every write is
// best-effort: an audit failure must never change a decision or block an
// action.
type Auditor struct {
	path string
	now  func() time.Time
}

// NewAuditor creates an Auditor writing to the given path. An empty path
// disables auditing.
func NewAuditor(path string) *Auditor {
	return &Auditor{path: path, now: time.Now}
}

// Record appends one decision to the audit trail.
func (a *Auditor) Record(command string, d Decision) {
	if a == nil || a.path == "" {
		return
	}

	decision := "allow"
	if !d.Allow {
		decision = "deny"
	}
	rec := AuditRecord{
		Time:     a.now().UTC().Format(time.RFC3339),
		Decision: decision,
		Tag:      d.Tag,
		Reason:   d.Reason,
		Command:  command,
		Source:   d.Source,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(data, '\n'))
}
