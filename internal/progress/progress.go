// Package progress carries events from long-running indexing and search work
// to interactive clients. Sinks are message-passing: the operation owns the
// sender, the UI owns the receiver, and throttling is enforced by the sink
// itself.
package progress

import (
	"sync"
	"time"

	"github.com/semcs/ck/internal/core"
)

// Callback receives coarse progress messages (one per file).
type Callback func(message string)

// DetailedCallback receives per-chunk indexing progress.
type DetailedCallback func(update DetailedUpdate)

// DetailedUpdate is one fine-grained indexing progress report.
type DetailedUpdate struct {
	File         string
	ChunkIndex   int
	TotalChunks  int
	FilesDone    int
	TotalFiles   int
	Stage        string // "chunking", "embedding", "writing"
}

// EventKind tags events on the UI channel.
type EventKind int

const (
	EventIndexing EventKind = iota
	EventIndexingDone
	EventSearchProgress
	EventSearchCompleted
	EventSearchFailed
)

// Event is one typed delivery to an interactive client. Generation advances
// monotonically per request; receivers drop events whose generation is stale.
type Event struct {
	Kind       EventKind
	Generation uint64
	Message    string
	Progress   *float64
	Results    *core.SearchResults
	Summary    string
	Err        error
}

// minInterval is the floor between intermediate deliveries. The final update
// of an operation must always be sent (use Flush-style sends with final=true).
const minInterval = 120 * time.Millisecond

// ThrottledSink rate-limits deliveries to at most one per 120 ms, except
// that a final event is always forwarded.
type ThrottledSink struct {
	mu      sync.Mutex
	out     chan<- Event
	last    time.Time
	dropped int
}

// NewThrottledSink wraps a channel.
func NewThrottledSink(out chan<- Event) *ThrottledSink {
	return &ThrottledSink{out: out}
}

// Send forwards ev unless a delivery happened within the throttle window.
// final bypasses the throttle. Returns whether the event was forwarded.
func (s *ThrottledSink) Send(ev Event, final bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !final && now.Sub(s.last) < minInterval {
		s.dropped++
		return false
	}
	s.last = now

	select {
	case s.out <- ev:
		return true
	default:
		// Receiver is not keeping up; drop rather than block the indexer.
		s.dropped++
		return false
	}
}

// Dropped returns how many events were suppressed.
func (s *ThrottledSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
