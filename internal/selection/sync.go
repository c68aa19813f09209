package selection

import (
	"log"
	"sync"
	"time"
)

// DefaultHighlightTTL is how long a checklist highlight stays on before it
// clears itself, unless re-triggered.
const DefaultHighlightTTL = 3 * time.Second

type highlight struct {
	slotID string
	timer  *time.Timer
}

// Sync bridges the document-type checklist and the upload queue. It owns
// the two pieces of cross-component state: the pinned preferred target for
// the next intake, and the transient checklist highlight. Both are written
// only here; everyone else reads or listens on the bus.
type Sync struct {
	bus *Bus
	ttl time.Duration

	mu         sync.Mutex
	pins       map[string]string // leadID -> slotID
	highlights map[string]*highlight
}

func NewSync(bus *Bus, ttl time.Duration) *Sync {
	if ttl <= 0 {
		ttl = DefaultHighlightTTL
	}
	return &Sync{
		bus:        bus,
		ttl:        ttl,
		pins:       make(map[string]string),
		highlights: make(map[string]*highlight),
	}
}

// PinSlot records a checklist slot as the preferred target for the next
// intake. The pin is sticky: classification finishing never clears it, only
// a successful commit or an explicit ClearPin does.
func (s *Sync) PinSlot(leadID, slotID string) {
	s.mu.Lock()
	s.pins[leadID] = slotID
	s.mu.Unlock()

	log.Printf("[Selection] pinned slot=%s lead=%s", slotID, leadID)
	s.bus.Publish(Event{Kind: EventSlotPinned, LeadID: leadID, SlotID: slotID})
}

// Pin returns the currently pinned slot for a lead, if any.
func (s *Sync) Pin(leadID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slotID, ok := s.pins[leadID]
	return slotID, ok
}

func (s *Sync) ClearPin(leadID string) {
	s.mu.Lock()
	_, had := s.pins[leadID]
	delete(s.pins, leadID)
	s.mu.Unlock()

	if had {
		s.bus.Publish(Event{Kind: EventPinCleared, LeadID: leadID})
	}
}

// Highlight marks a checklist slot for a lead. The highlight self-clears
// after the configured interval; re-triggering resets the clock.
func (s *Sync) Highlight(leadID, slotID string) {
	s.mu.Lock()
	if h, ok := s.highlights[leadID]; ok {
		h.timer.Stop()
	}
	h := &highlight{slotID: slotID}
	h.timer = time.AfterFunc(s.ttl, func() {
		s.expire(leadID, h)
	})
	s.highlights[leadID] = h
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventSlotHighlighted, LeadID: leadID, SlotID: slotID})
}

func (s *Sync) expire(leadID string, h *highlight) {
	s.mu.Lock()
	// A newer highlight may have replaced this one while the timer fired.
	if s.highlights[leadID] != h {
		s.mu.Unlock()
		return
	}
	delete(s.highlights, leadID)
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventHighlightCleared, LeadID: leadID, SlotID: h.slotID})
}

// Highlighted returns the currently highlighted slot for a lead, if any.
func (s *Sync) Highlighted(leadID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.highlights[leadID]
	if !ok {
		return "", false
	}
	return h.slotID, true
}

// TargetResolved reports that a queued file settled on (or changed to) a
// target slot; the checklist reacts by highlighting that slot.
func (s *Sync) TargetResolved(leadID, fileID, slotID string) {
	s.bus.Publish(Event{Kind: EventTargetResolved, LeadID: leadID, FileID: fileID, SlotID: slotID})
	s.Highlight(leadID, slotID)
}

// Committed reports a successful commit. The pin for the lead is released
// so the next intake starts clean.
func (s *Sync) Committed(leadID, fileID, slotID string) {
	s.ClearPin(leadID)
	s.bus.Publish(Event{Kind: EventDocumentCommitted, LeadID: leadID, FileID: fileID, SlotID: slotID})
}
