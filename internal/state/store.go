// Package state owns the .minder/ working files: the task ledger, the
// progress narrative, the iteration log directory, and the paths to the
// prompt and agent settings. The supervisor never mutates the ledger; the
// agent owns the passes flags and this package only observes them.
package state

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for the two fatal pre-loop conditions.
var (
	// ErrMalformedLedger indicates tasks.json exists but violates the schema.
	ErrMalformedLedger = errors.New("malformed task ledger")

	// ErrMissingInput indicates a required .minder/ file is absent.
	ErrMissingInput = errors.New("missing required input")
)

// Store resolves and reads the .minder/ files for one supervised project.
type Store struct {
	basePath string
}

// NewStore creates a Store rooted at the given project directory.
func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// BasePath returns the project directory this store is rooted at.
func (s *Store) BasePath() string {
	return s.basePath
}

// Dir returns the .minder/ directory path.
func (s *Store) Dir() string {
	return filepath.Join(s.basePath, ".minder")
}

// TasksPath returns the path to the task ledger.
func (s *Store) TasksPath() string {
	return filepath.Join(s.Dir(), "tasks.json")
}

// ProgressPath returns the path to the progress narrative.
func (s *Store) ProgressPath() string {
	return filepath.Join(s.Dir(), "progress.md")
}

// PromptPath returns the path to the iteration instruction document.
func (s *Store) PromptPath() string {
	return filepath.Join(s.Dir(), "prompt.md")
}

// SettingsPath returns the path to the agent settings file.
func (s *Store) SettingsPath() string {
	return filepath.Join(s.Dir(), "settings.json")
}

// ConfigPath returns the path to config.yaml.
func (s *Store) ConfigPath() string {
	return filepath.Join(s.Dir(), "config.yaml")
}

// LogsDir returns the iteration log directory.
func (s *Store) LogsDir() string {
	return filepath.Join(s.Dir(), "logs")
}

// IterationIndexPath returns the path to the iterations.jsonl index.
func (s *Store) IterationIndexPath() string {
	return filepath.Join(s.LogsDir(), "iterations.jsonl")
}

// AuditPath returns the path to the gate's audit trail.
func (s *Store) AuditPath() string {
	return filepath.Join(s.LogsDir(), "audit.jsonl")
}

// StopPath returns the path to the kill-switch file.
func (s *Store) StopPath() string {
	return filepath.Join(s.Dir(), "STOP")
}

// StopRequested reports whether the kill-switch file exists.
func (s *Store) StopRequested() bool {
	_, err := os.Stat(s.StopPath())
	return err == nil
}

// EnsureLogsDir creates the log directory if it does not exist.
func (s *Store) EnsureLogsDir() error {
	if err := os.MkdirAll(s.LogsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// LoadTasks parses the task ledger strictly. Any structural violation is
// ErrMalformedLedger; a missing file is ErrMissingInput. There is no lenient
// mode: a ledger the supervisor cannot fully trust is a hard stop, never a
// partial read.
func (s *Store) LoadTasks() ([]Task, error) {
	data, err := os.ReadFile(s.TasksPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, s.TasksPath())
		}
		return nil, fmt.Errorf("failed to read task ledger: %w", err)
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLedger, err)
	}

	seen := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate task id %d", ErrMalformedLedger, t.ID)
		}
		seen[t.ID] = true

		if t.Description == "" {
			return nil, fmt.Errorf("%w: task %d has empty description", ErrMalformedLedger, t.ID)
		}
		if len(t.Steps) == 0 {
			return nil, fmt.Errorf("%w: task %d has no steps", ErrMalformedLedger, t.ID)
		}
		if !ValidCategory(t.Category) {
			return nil, fmt.Errorf("%w: task %d has unknown category %q", ErrMalformedLedger, t.ID, t.Category)
		}
	}

	return tasks, nil
}

// CountPassing returns the number of tasks with passes set.
func CountPassing(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if t.Passes {
			n++
		}
	}
	return n
}

// AllPass reports whether the ledger is non-empty and every task passes.
// An empty ledger is never complete: a truncated or corrupted file must not
// read as trivially done.
func AllPass(tasks []Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !t.Passes {
			return false
		}
	}
	return true
}

// DetectRegression returns the id of the first task whose passes flag moved
// true→false between two reads, or -1 if none did. Passes is monotonic
// within a session, so a backward flip means the ledger was corrupted.
func DetectRegression(prev, cur []Task) int {
	passing := make(map[int]bool, len(prev))
	for _, t := range prev {
		if t.Passes {
			passing[t.ID] = true
		}
	}
	for _, t := range cur {
		if passing[t.ID] && !t.Passes {
			return t.ID
		}
	}
	return -1
}

// HasCompletionMarker scans progress.md for the completion marker as an
// exact line (surrounding whitespace ignored). A missing narrative file
// simply means the marker has not been written yet.
func (s *Store) HasCompletionMarker() (bool, error) {
	f, err := os.Open(s.ProgressPath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open progress file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == CompletionMarker {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to read progress file: %w", err)
	}
	return false, nil
}

// LoadPrompt reads the fixed instruction payload for agent invocations.
func (s *Store) LoadPrompt() (string, error) {
	data, err := os.ReadFile(s.PromptPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrMissingInput, s.PromptPath())
		}
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

// CheckRequired verifies that every file a run depends on exists.
func (s *Store) CheckRequired() error {
	for _, path := range []string{s.PromptPath(), s.TasksPath(), s.SettingsPath()} {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrMissingInput, path)
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return nil
}

// TranscriptPath returns the transcript file path for an iteration. Names
// sort chronologically by iteration number first and wall clock second.
func (s *Store) TranscriptPath(iteration int, t time.Time) string {
	name := fmt.Sprintf("iteration-%03d-%s.log", iteration, t.UTC().Format("20060102T150405Z"))
	return filepath.Join(s.LogsDir(), name)
}

// AppendIterationRecord appends one record to the iterations.jsonl index.
// Records are append-only and never rewritten.
func (s *Store) AppendIterationRecord(rec IterationRecord) error {
	if err := s.EnsureLogsDir(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal iteration record: %w", err)
	}

	f, err := os.OpenFile(s.IterationIndexPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open iteration index: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append iteration record: %w", err)
	}
	return nil
}

// LoadIterationRecords reads the iterations.jsonl index. A missing index
// means no iteration has run yet. Unparseable lines are skipped rather than
// failing the whole read; a record mid-append is a display gap, not an error.
func (s *Store) LoadIterationRecords() ([]IterationRecord, error) {
	f, err := os.Open(s.IterationIndexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open iteration index: %w", err)
	}
	defer f.Close()

	var records []IterationRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec IterationRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read iteration index: %w", err)
	}
	return records, nil
}
