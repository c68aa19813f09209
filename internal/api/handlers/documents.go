package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListDocuments returns a page of a lead's committed documents, newest
// first.
func (h *Handlers) ListDocuments(c *gin.Context) {
	leadID := c.Param("leadId")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	docs, err := h.Store.ListLeadDocuments(c.Request.Context(), leadID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents: " + err.Error()})
		return
	}
	total, err := h.Store.CountLeadDocuments(c.Request.Context(), leadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count documents: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}
