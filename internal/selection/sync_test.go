package selection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestPinIsStickyUntilCommit(t *testing.T) {
	bus := NewBus()
	s := NewSync(bus, time.Minute)

	s.PinSlot("lead-1", "dt-1")

	slot, ok := s.Pin("lead-1")
	require.True(t, ok)
	assert.Equal(t, "dt-1", slot)

	// Classification finishing must not touch the pin; only commit does.
	s.TargetResolved("lead-1", "file-1", "dt-2")
	slot, ok = s.Pin("lead-1")
	require.True(t, ok)
	assert.Equal(t, "dt-1", slot)

	s.Committed("lead-1", "file-1", "dt-1")
	_, ok = s.Pin("lead-1")
	assert.False(t, ok)
}

func TestClearPinIsExplicit(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.record)

	s := NewSync(bus, time.Minute)
	s.PinSlot("lead-1", "dt-1")
	s.ClearPin("lead-1")

	_, ok := s.Pin("lead-1")
	assert.False(t, ok)
	assert.Equal(t, []EventKind{EventSlotPinned, EventPinCleared}, rec.kinds())

	// Clearing an absent pin publishes nothing.
	s.ClearPin("lead-2")
	assert.Len(t, rec.kinds(), 2)
}

func TestHighlightExpires(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.record)

	s := NewSync(bus, 30*time.Millisecond)
	s.Highlight("lead-1", "dt-1")

	slot, ok := s.Highlighted("lead-1")
	require.True(t, ok)
	assert.Equal(t, "dt-1", slot)

	assert.Eventually(t, func() bool {
		_, ok := s.Highlighted("lead-1")
		return !ok
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, rec.kinds(), EventHighlightCleared)
}

func TestHighlightRetriggerResetsClock(t *testing.T) {
	bus := NewBus()
	s := NewSync(bus, 60*time.Millisecond)

	s.Highlight("lead-1", "dt-1")
	time.Sleep(40 * time.Millisecond)
	s.Highlight("lead-1", "dt-2")
	time.Sleep(40 * time.Millisecond)

	// 80ms after the first trigger the highlight is still on because the
	// second trigger reset the clock.
	slot, ok := s.Highlighted("lead-1")
	require.True(t, ok)
	assert.Equal(t, "dt-2", slot)

	assert.Eventually(t, func() bool {
		_, ok := s.Highlighted("lead-1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestTargetResolvedHighlightsSlot(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.record)

	s := NewSync(bus, time.Minute)
	s.TargetResolved("lead-1", "file-1", "dt-3")

	slot, ok := s.Highlighted("lead-1")
	require.True(t, ok)
	assert.Equal(t, "dt-3", slot)
	assert.Equal(t, []EventKind{EventTargetResolved, EventSlotHighlighted}, rec.kinds())
}
