package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loandesk/document-service/internal/commit"
)

type commitRequest struct {
	ApplicantName   string `json:"applicant_name"`
	CoApplicantName string `json:"co_applicant_name"`
	SkipConfirm     bool   `json:"skip_confirm"`
}

// CommitEntry is the explicit "Approve & Upload" action for one queue
// entry. A mismatch gate comes back as 409 with confirmation_required; the
// client retries with skip_confirm once the user overrides.
func (h *Handlers) CommitEntry(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	// The body is optional; applicant names and skip_confirm default empty.
	var req commitRequest
	_ = c.ShouldBindJSON(&req)

	doc, notice, err := h.Committer.Commit(c.Request.Context(), commit.Request{
		LeadID:          c.Param("leadId"),
		FileID:          c.Param("fileId"),
		UploadedBy:      userID,
		ApplicantName:   req.ApplicantName,
		CoApplicantName: req.CoApplicantName,
		SkipConfirm:     req.SkipConfirm,
	})
	if err != nil {
		var mismatch *commit.MismatchError
		switch {
		case errors.As(err, &mismatch):
			c.JSON(http.StatusConflict, gin.H{
				"confirmation_required": true,
				"mismatch":              mismatch,
				"replacing":             notice.Replacing,
			})
		case errors.Is(err, commit.ErrNoTargetType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			writeQueueError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document":  doc,
		"replacing": notice.Replacing,
	})
}
