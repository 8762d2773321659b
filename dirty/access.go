package dirty

import (
	"container/list"
	"sync"
	"time"
)

// AccessLog is the orthogonal, optional access-tracking facility §4.7
// describes: per-member write counters and timestamps, plus a bounded
// recent-event log whose events are each tagged with the caller-pushed
// scope labels in effect. The counters and timestamps are kept per member
// only; they are not broken down by scope label. It never
// affects delta emission — nothing in package diff or apply looks at an
// AccessLog.
//
// The shape is adapted from the teacher's per-instance operation tracker
// (models/operation_tracking.go's OperationContext/OperationTracker) for
// the counters, and from its bounded string-intern pool
// (models/string_intern.go's map + container/list LRU) for the event
// ring's eviction policy.
type AccessLog struct {
	mu sync.Mutex

	counts     map[int]int64     // member -> write count
	lastWrite  map[int]time.Time // member -> last write time
	maxEvents  int
	events     *list.List // of accessEvent, front = most recent
	eventIndex map[*accessEvent]*list.Element

	scopes []string // push/pop stack of caller-supplied scope labels
}

// AccessEvent is one recorded write, annotated with the scope stack in
// effect when it happened.
type AccessEvent struct {
	Member int
	At     time.Time
	Scope  string // joined scope labels, empty if none were pushed
}

type accessEvent struct {
	AccessEvent
}

// NewAccessLog returns an AccessLog retaining at most maxEvents recent
// events (0 disables the ring, keeping only the counters).
func NewAccessLog(maxEvents int) *AccessLog {
	return &AccessLog{
		counts:     make(map[int]int64),
		lastWrite:  make(map[int]time.Time),
		maxEvents:  maxEvents,
		events:     list.New(),
		eventIndex: make(map[*accessEvent]*list.Element),
	}
}

// PushScope pushes a label onto the scope stack; subsequent RecordWrite
// calls are tagged with the joined stack until the matching PopScope.
func (a *AccessLog) PushScope(label string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scopes = append(a.scopes, label)
}

// PopScope pops the most recently pushed scope label, if any.
func (a *AccessLog) PopScope() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.scopes) > 0 {
		a.scopes = a.scopes[:len(a.scopes)-1]
	}
}

func (a *AccessLog) currentScope() string {
	if len(a.scopes) == 0 {
		return ""
	}
	out := a.scopes[0]
	for _, s := range a.scopes[1:] {
		out += ":" + s
	}
	return out
}

// RecordWrite records a write to member, bumping its counter and
// timestamp and, if the ring is enabled, appending an event — evicting
// the oldest event first once maxEvents is reached.
func (a *AccessLog) RecordWrite(member int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	a.counts[member]++
	a.lastWrite[member] = now

	if a.maxEvents <= 0 {
		return
	}
	ev := &accessEvent{AccessEvent{Member: member, At: now, Scope: a.currentScope()}}
	el := a.events.PushFront(ev)
	a.eventIndex[ev] = el

	for a.events.Len() > a.maxEvents {
		oldest := a.events.Back()
		a.events.Remove(oldest)
		delete(a.eventIndex, oldest.Value.(*accessEvent))
	}
}

// Count returns the number of recorded writes to member.
func (a *AccessLog) Count(member int) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[member]
}

// LastWrite returns the last time member was written and whether it was
// ever written at all.
func (a *AccessLog) LastWrite(member int) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.lastWrite[member]
	return t, ok
}

// RecentEvents returns up to the retained events, most recent first.
func (a *AccessLog) RecentEvents() []AccessEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AccessEvent, 0, a.events.Len())
	for el := a.events.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*accessEvent).AccessEvent)
	}
	return out
}
