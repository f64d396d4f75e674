package state

// Task represents a single unit of work from tasks.json.
//
// Everything except Passes is fixed when the ledger is authored. Passes is
// flipped false→true by the agent when the task's verification step succeeds;
// the supervisor only ever reads it.
type Task struct {
	ID          int      `json:"id"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Passes      bool     `json:"passes"`
}

// IterationRecord is one line of the iterations.jsonl index: the durable
// summary of a single agent invocation.
type IterationRecord struct {
	RunID      string `json:"run_id"`
	Iteration  int    `json:"iteration"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	ExitCode   int    `json:"exit_code"`
	Transcript string `json:"transcript"`
	Passing    int    `json:"passing"`
	Total      int    `json:"total"`
}

// CompletionMarker is the exact literal line whose presence in progress.md
// signals session completion, independent of the ledger's passes flags.
const CompletionMarker = "ALL TASKS COMPLETE"

// Task category values, in the order they are expected to appear in a ledger.
const (
	CategoryFoundation   = "foundation"
	CategoryCore         = "core"
	CategoryFeature      = "feature"
	CategoryReliability  = "reliability"
	CategoryTesting      = "testing"
	CategoryVerification = "verification"
)

// Categories lists the valid task categories.
var Categories = []string{
	CategoryFoundation,
	CategoryCore,
	CategoryFeature,
	CategoryReliability,
	CategoryTesting,
	CategoryVerification,
}

// ValidCategory reports whether c is a known task category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
