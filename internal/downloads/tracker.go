// package downloads implements per-episode download tracking and the
// orchestrator that runs a single download to completion.
//
// The tracker owns one entry per in-flight episode id. Entries are
// independently locked so concurrent downloads of different episodes never
// contend, and progress reads never block the writer for more than a field
// copy. The core invariant: an entry never outlives its owning transfer.
// Success, failure, and rollback all remove it.
package downloads

import (
	"fmt"
	"sync"

	"github.com/desertthunder/castro/internal/shared"
)

// Progress is a point-in-time view of one download.
type Progress struct {
	ReceivedBytes int64   `json:"received_bytes"`
	TotalBytes    int64   `json:"total_bytes"` // -1 when the server did not declare a length
	Fraction      float64 `json:"fraction"`    // 0.0 to 1.0, monotone non-decreasing; 0 while indeterminate
	Indeterminate bool    `json:"indeterminate"`
}

// Entry is the live progress record for one in-flight download.
type Entry struct {
	mu       sync.Mutex
	progress Progress
}

// update records transfer progress. The fraction never decreases and never
// exceeds 1.0, even if the server lied about content length.
func (e *Entry) update(received, total int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.progress.ReceivedBytes = received
	e.progress.TotalBytes = total

	if total <= 0 {
		e.progress.Indeterminate = true
		return
	}

	e.progress.Indeterminate = false
	fraction := float64(received) / float64(total)
	if fraction > 1.0 {
		fraction = 1.0
	}
	if fraction > e.progress.Fraction {
		e.progress.Fraction = fraction
	}
}

// snapshot returns a copy of the current progress.
func (e *Entry) snapshot() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Tracker maps episode ids to live download entries.
type Tracker struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[int64]*Entry)}
}

// Begin claims the entry for an episode id. A second Begin for an id still
// in flight is rejected with [shared.ErrAlreadyDownloading]; duplicate
// download requests are refused, not coalesced.
func (t *Tracker) Begin(episodeID int64) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[episodeID]; exists {
		return nil, fmt.Errorf("%w: episode %d", shared.ErrAlreadyDownloading, episodeID)
	}

	entry := &Entry{}
	t.entries[episodeID] = entry
	return entry, nil
}

// End releases the entry for an episode id. Called on every exit path of the
// owning transfer.
func (t *Tracker) End(episodeID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, episodeID)
}

// Progress reads the current progress for an episode id. The second return
// is false when no download is in flight for that id.
func (t *Tracker) Progress(episodeID int64) (Progress, bool) {
	t.mu.RLock()
	entry, ok := t.entries[episodeID]
	t.mu.RUnlock()

	if !ok {
		return Progress{}, false
	}
	return entry.snapshot(), true
}

// InFlight returns the ids of all downloads currently running.
func (t *Tracker) InFlight() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]int64, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}
