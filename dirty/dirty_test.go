package dirty

import (
	"sync"
	"testing"
)

func TestTrackerPopAscending(t *testing.T) {
	tr := NewTracker(10)
	tr.Mark(7)
	tr.Mark(2)
	tr.Mark(5)
	tr.Mark(2) // idempotent

	var got []int
	for tr.HasAny() {
		bit, ok := tr.PopNext()
		if !ok {
			t.Fatal("HasAny reported true but PopNext found nothing")
		}
		got = append(got, bit)
	}
	want := []int{2, 5, 7}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTrackerAcrossWordBoundary(t *testing.T) {
	tr := NewTracker(200)
	tr.Mark(63)
	tr.Mark(64)
	tr.Mark(150)

	bit, _ := tr.PopNext()
	if bit != 63 {
		t.Fatalf("expected 63 first, got %d", bit)
	}
	bit, _ = tr.PopNext()
	if bit != 64 {
		t.Fatalf("expected 64 second, got %d", bit)
	}
	bit, _ = tr.PopNext()
	if bit != 150 {
		t.Fatalf("expected 150 third, got %d", bit)
	}
}

func TestAtomicConcurrentMarkNoLostUpdates(t *testing.T) {
	a := NewAtomic(256)
	var wg sync.WaitGroup
	for i := 0; i < 256; i++ {
		wg.Add(1)
		go func(bit int) {
			defer wg.Done()
			a.Mark(bit)
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for a.HasAny() {
		bit, ok := a.PopNext()
		if !ok {
			break
		}
		if seen[bit] {
			t.Fatalf("bit %d popped twice", bit)
		}
		seen[bit] = true
	}
	if len(seen) != 256 {
		t.Fatalf("expected 256 distinct bits, got %d", len(seen))
	}
}

func TestAccessLogBoundedRing(t *testing.T) {
	log := NewAccessLog(2)
	log.RecordWrite(1)
	log.RecordWrite(2)
	log.RecordWrite(3)

	events := log.RecentEvents()
	if len(events) != 2 {
		t.Fatalf("expected ring bounded to 2 events, got %d", len(events))
	}
	if events[0].Member != 3 || events[1].Member != 2 {
		t.Fatalf("expected most-recent-first order [3 2], got %+v", events)
	}
	if log.Count(1) != 1 || log.Count(3) != 1 {
		t.Fatal("counters must track every write regardless of ring size")
	}
}

func TestAccessLogScopeLabels(t *testing.T) {
	log := NewAccessLog(4)
	log.PushScope("request:42")
	log.RecordWrite(1)
	log.PopScope()
	log.RecordWrite(2)

	events := log.RecentEvents()
	if events[1].Scope != "request:42" {
		t.Fatalf("expected scoped event to carry its label, got %q", events[1].Scope)
	}
	if events[0].Scope != "" {
		t.Fatalf("expected unscoped event to carry no label, got %q", events[0].Scope)
	}
}
