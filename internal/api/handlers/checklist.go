package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loandesk/document-service/internal/models"
)

// GetChecklist returns every slot with its derived status, plus the current
// highlight and pin so the checklist UI can render both.
func (h *Handlers) GetChecklist(c *gin.Context) {
	leadID := c.Param("leadId")

	slots, err := h.Store.Checklist(c.Request.Context(), leadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load checklist: " + err.Error()})
		return
	}

	resp := gin.H{"slots": slots}
	if slotID, ok := h.Selection.Highlighted(leadID); ok {
		resp["highlighted_slot_id"] = slotID
	}
	if slotID, ok := h.Selection.Pin(leadID); ok {
		resp["pinned_slot_id"] = slotID
	}
	c.JSON(http.StatusOK, resp)
}

// SelectSlot is the checklist-to-upload trigger: picking a not-yet-uploaded
// slot pins it as the preferred target for the next intake.
func (h *Handlers) SelectSlot(c *gin.Context) {
	leadID := c.Param("leadId")
	slotID := c.Param("slotId")

	slot, ok, err := h.Store.GetDocumentType(c.Request.Context(), slotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown document type"})
		return
	}

	if _, exists, err := h.Store.GetLeadDocument(c.Request.Context(), leadID, slotID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "slot already has a committed document"})
		return
	}

	h.Selection.PinSlot(leadID, slotID)
	c.JSON(http.StatusOK, gin.H{
		"pinned_slot_id": slotID,
		"slot":           models.DocumentTypeSlot{ID: slot.ID, Name: slot.Name, Category: slot.Category, Required: slot.Required, Status: models.SlotNotUploaded},
	})
}

// ClearSelection removes the pinned preferred target for a lead.
func (h *Handlers) ClearSelection(c *gin.Context) {
	leadID := c.Param("leadId")
	h.Selection.ClearPin(leadID)
	c.JSON(http.StatusOK, gin.H{"message": "selection cleared"})
}
