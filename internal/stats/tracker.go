// Package stats aggregates per-operation latency from the book's observer
// hook.
package stats

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// OpSummary is the aggregate for one operation name.
type OpSummary struct {
	Count    uint64
	Affected uint64
	Total    time.Duration
	Min      time.Duration
	Max      time.Duration
}

// Mean is the average latency across all recorded calls.
func (s OpSummary) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Tracker records operation timings. Observe is shaped to be installed
// directly as a book observer; it runs under the book lock, so it only
// does a map update behind its own short-lived mutex and never touches
// the book.
type Tracker struct {
	mu  sync.Mutex
	ops map[string]*OpSummary
}

func NewTracker() *Tracker {
	return &Tracker{
		ops: make(map[string]*OpSummary),
	}
}

func (t *Tracker) Observe(op string, start, end time.Time, affected int) {
	elapsed := end.Sub(start)

	t.mu.Lock()
	defer t.mu.Unlock()

	summary, ok := t.ops[op]
	if !ok {
		summary = &OpSummary{Min: elapsed, Max: elapsed}
		t.ops[op] = summary
	}
	summary.Count++
	summary.Affected += uint64(affected)
	summary.Total += elapsed
	if elapsed < summary.Min {
		summary.Min = elapsed
	}
	if elapsed > summary.Max {
		summary.Max = elapsed
	}
}

// Summaries returns a copy of the aggregates keyed by operation name.
func (t *Tracker) Summaries() map[string]OpSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]OpSummary, len(t.ops))
	for op, summary := range t.ops {
		out[op] = *summary
	}
	return out
}

// Report logs one line per operation.
func (t *Tracker) Report() {
	for op, summary := range t.Summaries() {
		log.Info().
			Str("op", op).
			Uint64("count", summary.Count).
			Uint64("ordersAffected", summary.Affected).
			Dur("min", summary.Min).
			Dur("mean", summary.Mean()).
			Dur("max", summary.Max).
			Msg("operation latency")
	}
}
