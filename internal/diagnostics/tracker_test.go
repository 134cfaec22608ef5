package diagnostics

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Record(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestTrackerCooldownBatching(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	tracker := NewTrackerWithClock(sink, time.Minute, func() time.Time { return clock })

	// First observation emits immediately.
	tracker.Observe("zeta_field", "alpha_field")
	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if !reflect.DeepEqual(events[0].Fields, []string{"alpha_field", "zeta_field"}) {
		t.Errorf("fields = %v, want sorted batch", events[0].Fields)
	}

	// Inside the cooldown nothing more is emitted.
	clock = clock.Add(30 * time.Second)
	tracker.Observe("mid_field")
	if len(sink.all()) != 1 {
		t.Fatalf("emitted inside cooldown")
	}

	// After the cooldown the pending batch flushes.
	clock = clock.Add(31 * time.Second)
	tracker.Observe("late_field")
	events = sink.all()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if !reflect.DeepEqual(events[1].Fields, []string{"late_field", "mid_field"}) {
		t.Errorf("second batch = %v", events[1].Fields)
	}
}

func TestTrackerDeduplicates(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	tracker := NewTrackerWithClock(sink, time.Minute, func() time.Time { return clock })

	tracker.Observe("dup_field")
	clock = clock.Add(2 * time.Minute)
	tracker.Observe("dup_field", "dup_field")

	emissions := 0
	for _, event := range sink.all() {
		for _, f := range event.Fields {
			if f == "dup_field" {
				emissions++
			}
		}
	}
	if emissions != 1 {
		t.Errorf("dup_field emitted %d times, want once: %v", emissions, sink.all())
	}

	if got := tracker.Snapshot(); !reflect.DeepEqual(got, []string{"dup_field"}) {
		t.Errorf("Snapshot = %v", got)
	}
}

func TestTrackerNilSafety(t *testing.T) {
	var tracker *Tracker
	tracker.Observe("anything") // must not panic

	withNilSink := NewTracker(nil, time.Minute)
	withNilSink.Observe("field_a") // nil sink is a no-op
}

type panickySink struct{}

func (panickySink) Record(Event) { panic("sink exploded") }

func TestTrackerSwallowsSinkPanic(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTrackerWithClock(panickySink{}, time.Minute, func() time.Time { return clock })

	tracker.Observe("boom_field") // must not propagate the panic
}

func TestTrackerConcurrentObserve(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Observe("shared_field")
			}
		}(i)
	}
	wg.Wait()

	if got := tracker.Snapshot(); !reflect.DeepEqual(got, []string{"shared_field"}) {
		t.Errorf("Snapshot = %v", got)
	}
}
