package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loandesk/document-service/internal/commit"
	"github.com/loandesk/document-service/internal/queue"
	"github.com/loandesk/document-service/internal/selection"
	"github.com/loandesk/document-service/internal/services"
)

// Handlers carries the wired collaborators into the HTTP layer.
type Handlers struct {
	Queue     *queue.Manager
	Committer *commit.Committer
	Selection *selection.Sync
	Store     *services.DocumentStore
	Objects   *services.MinioService
}

func New(q *queue.Manager, c *commit.Committer, sel *selection.Sync, store *services.DocumentStore, objects *services.MinioService) *Handlers {
	return &Handlers{
		Queue:     q,
		Committer: c,
		Selection: sel,
		Store:     store,
		Objects:   objects,
	}
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func userIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}
