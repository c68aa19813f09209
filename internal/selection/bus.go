package selection

import (
	"sync"
)

type EventKind string

const (
	EventSlotPinned        EventKind = "slot_pinned"
	EventPinCleared        EventKind = "pin_cleared"
	EventSlotHighlighted   EventKind = "slot_highlighted"
	EventHighlightCleared  EventKind = "highlight_cleared"
	EventTargetResolved    EventKind = "target_resolved"
	EventDocumentCommitted EventKind = "document_committed"
)

// Event is one cross-component signal. The checklist and the upload queue
// never call into each other directly; they exchange these.
type Event struct {
	Kind   EventKind
	LeadID string
	SlotID string
	FileID string
}

// Bus is an in-process observer list. Publish is synchronous; subscribers
// must not block.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Event)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}
