package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

type leadDeletedEvent struct {
	LeadID string `json:"lead_id"`
}

// HandleLeadDeleted reacts to an upstream lead deletion: every object under
// the lead's storage prefix and every document row go away.
func (h *Handlers) HandleLeadDeleted(msg *nats.Msg) {
	var event leadDeletedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("[NATS] leads.deleted: bad payload: %v", err)
		_ = msg.Ack()
		return
	}
	if event.LeadID == "" {
		log.Println("[NATS] leads.deleted: missing lead_id")
		_ = msg.Ack()
		return
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("leads/%s/", event.LeadID)

	if err := h.Objects.DeleteObjectsByPrefix(ctx, prefix); err != nil {
		log.Printf("[NATS] leads.deleted: object cleanup failed for %s: %v", event.LeadID, err)
		// leave unacked so the consumer redelivers
		return
	}

	count, err := h.Store.DeleteAllForLead(ctx, event.LeadID)
	if err != nil {
		log.Printf("[NATS] leads.deleted: row cleanup failed for %s: %v", event.LeadID, err)
		return
	}

	log.Printf("[NATS] leads.deleted: removed %d documents for lead %s", count, event.LeadID)
	_ = msg.Ack()
}
