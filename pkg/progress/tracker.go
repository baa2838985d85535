// Package progress persists per-item completion state so interrupted runs
// resume where they left off.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/logger"
)

// FileName is the progress file kept at the root of the save directory.
const FileName = "_progress.json"

// Status is the terminal state of one item.
type Status string

const (
	// StatusDone means the item's artifacts were fully written.
	StatusDone Status = "done"
	// StatusFailed means processing errored; the item is retried next run.
	StatusFailed Status = "failed"
	// StatusLocked means the item is paywalled and awaits an unlock run.
	StatusLocked Status = "locked"
)

// Entry records the outcome for one item.
type Entry struct {
	Status    Status    `json:"status"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker loads, queries and rewrites the progress file. All methods are
// safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
	logger  logger.Logger
}

// NewTracker opens the progress file under saveDir. A missing file yields
// an empty tracker; a corrupt one is logged and discarded so a bad write
// never bricks the whole run.
func NewTracker(saveDir string, log logger.Logger) (*Tracker, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	t := &Tracker{
		path:    filepath.Join(saveDir, FileName),
		entries: make(map[string]Entry),
		logger:  log,
	}

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, errs.New(errs.ErrorTypeWrite, 0, "failed to read progress file: %v", err)
	}
	if err := json.Unmarshal(data, &t.entries); err != nil {
		log.WarnWithFields("progress file is corrupt, starting fresh", map[string]interface{}{
			"path":  t.path,
			"error": err.Error(),
		})
		t.entries = make(map[string]Entry)
	}
	return t, nil
}

// Mark records the outcome for an item and rewrites the file atomically.
func (t *Tracker) Mark(id string, status Status, path, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[id] = Entry{
		Status:    status,
		Path:      path,
		Error:     errMsg,
		UpdatedAt: time.Now().UTC(),
	}
	return t.save()
}

// save rewrites the full file via a temp file and rename so a crash
// mid-write leaves the previous version intact. Caller holds the lock.
func (t *Tracker) save() error {
	data, err := json.MarshalIndent(t.entries, "", "  ")
	if err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to encode progress: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to create save directory: %v", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to write progress: %v", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return errs.New(errs.ErrorTypeWrite, 0, "failed to replace progress file: %v", err)
	}
	return nil
}

// IsDone reports whether the item completed in a previous run.
func (t *Tracker) IsDone(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return ok && e.Status == StatusDone
}

// Get returns the entry for an item, if any.
func (t *Tracker) Get(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// IDsWithStatus returns the ids recorded with the given status, sorted.
func (t *Tracker) IDsWithStatus(status Status) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for id, e := range t.entries {
		if e.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Counts tallies entries per status.
func (t *Tracker) Counts() map[Status]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[Status]int)
	for _, e := range t.entries {
		counts[e.Status]++
	}
	return counts
}

// Len is the number of recorded items.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Summary formats the per-status counts for the end-of-run report.
func (t *Tracker) Summary() string {
	counts := t.Counts()
	return fmt.Sprintf("done=%d failed=%d locked=%d",
		counts[StatusDone], counts[StatusFailed], counts[StatusLocked])
}
