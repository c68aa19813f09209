package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loandesk/document-service/internal/queue"
)

func (h *Handlers) GetQueue(c *gin.Context) {
	leadID := c.Param("leadId")
	c.JSON(http.StatusOK, gin.H{"entries": h.Queue.Snapshot(leadID)})
}

type setTargetRequest struct {
	DocumentTypeID string `json:"document_type_id" binding:"required"`
}

// SetTarget re-points a queued file at a different checklist slot. The
// checklist highlight follows.
func (h *Handlers) SetTarget(c *gin.Context) {
	leadID := c.Param("leadId")
	fileID := c.Param("fileId")

	var req setTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document_type_id is required"})
		return
	}

	if _, ok, err := h.Store.GetDocumentType(c.Request.Context(), req.DocumentTypeID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown document type"})
		return
	}

	if err := h.Queue.SetTarget(leadID, fileID, req.DocumentTypeID); err != nil {
		writeQueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_id": fileID, "document_type_id": req.DocumentTypeID})
}

func (h *Handlers) RemoveEntry(c *gin.Context) {
	leadID := c.Param("leadId")
	fileID := c.Param("fileId")

	if err := h.Queue.Remove(leadID, fileID); err != nil {
		writeQueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "entry removed", "file_id": fileID})
}

func writeQueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "queue entry not found"})
	case errors.Is(err, queue.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "an operation is in flight for this entry"})
	case errors.Is(err, queue.ErrWrongState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
