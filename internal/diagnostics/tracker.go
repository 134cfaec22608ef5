// Package diagnostics surfaces vendor-format drift without affecting
// pipeline correctness. The tracker is the only shared mutable state in
// the whole system; it is injected by handle rather than living as a
// package global, and its failures are swallowed.
package diagnostics

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"invoicecanon/internal/logger"
)

// DefaultCooldown is the minimum interval between sink emissions.
const DefaultCooldown = 60 * time.Second

// maxTrackedFields bounds tracker memory. Once full, new names are
// still counted in the emission but not retained.
const maxTrackedFields = 256

// Event is a fire-and-forget diagnostic record.
type Event struct {
	Type   string   `json:"type"`
	Fields []string `json:"fields,omitempty"`
	Count  int      `json:"count"`
}

// Sink receives diagnostic events. Implementations must not block for
// long; the tracker calls Record synchronously but swallows panics.
// A nil sink is a no-op, never an error.
type Sink interface {
	Record(event Event)
}

// Tracker accumulates unknown raw field names across calls and reports
// them through the sink at most once per cooldown interval.
type Tracker struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	pending  map[string]struct{}
	lastEmit time.Time
	cooldown time.Duration
	sink     Sink
	now      func() time.Time
	log      zerolog.Logger
}

// NewTracker creates a tracker with the given sink and cooldown. A
// cooldown of zero falls back to DefaultCooldown.
func NewTracker(sink Sink, cooldown time.Duration) *Tracker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Tracker{
		seen:     make(map[string]struct{}),
		pending:  make(map[string]struct{}),
		cooldown: cooldown,
		sink:     sink,
		now:      time.Now,
		log:      logger.WithComponent("diagnostics"),
	}
}

// NewTrackerWithClock creates a tracker with an injected clock for tests.
func NewTrackerWithClock(sink Sink, cooldown time.Duration, now func() time.Time) *Tracker {
	t := NewTracker(sink, cooldown)
	t.now = now
	return t
}

// Observe records unknown field names and, when the cooldown has
// elapsed, emits the pending batch to the sink. Observe never blocks
// the pipeline and never returns an error.
func (t *Tracker) Observe(fields ...string) {
	if t == nil || len(fields) == 0 {
		return
	}

	t.mu.Lock()
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, ok := t.seen[f]; ok {
			continue
		}
		if len(t.seen) < maxTrackedFields {
			t.seen[f] = struct{}{}
		}
		t.pending[f] = struct{}{}
	}

	var batch []string
	now := t.now()
	if len(t.pending) > 0 && now.Sub(t.lastEmit) >= t.cooldown {
		batch = make([]string, 0, len(t.pending))
		for f := range t.pending {
			batch = append(batch, f)
		}
		t.pending = make(map[string]struct{})
		t.lastEmit = now
	}
	t.mu.Unlock()

	if batch == nil {
		return
	}
	sort.Strings(batch)

	t.log.Debug().
		Strs("fields", batch).
		Msg("Unknown vendor fields observed")

	t.emit(Event{Type: "unknown_fields", Fields: batch, Count: len(batch)})
}

// emit delivers to the sink, swallowing any failure. The side channel
// must never fail the main pipeline.
func (t *Tracker) emit(event Event) {
	if t.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.log.Warn().
				Interface("panic", r).
				Msg("Diagnostics sink panicked; event dropped")
		}
	}()
	t.sink.Record(event)
}

// Snapshot returns every field name seen so far, sorted.
func (t *Tracker) Snapshot() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	fields := make([]string, 0, len(t.seen))
	for f := range t.seen {
		fields = append(fields, f)
	}
	t.mu.Unlock()
	sort.Strings(fields)
	return fields
}
