package api

import (
	"github.com/gin-gonic/gin"

	"github.com/loandesk/document-service/internal/api/handlers"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, PATCH, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, requireAuth gin.HandlerFunc) {
	// Enable CORS for preflight requests
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		authed := api.Group("", requireAuth)
		{
			// Upload queue
			authed.POST("/leads/:leadId/queue", h.Intake)                          // drop files into the queue
			authed.GET("/leads/:leadId/queue", h.GetQueue)                         // queue snapshot
			authed.PATCH("/leads/:leadId/queue/:fileId/target", h.SetTarget)       // manual re-target
			authed.DELETE("/leads/:leadId/queue/:fileId", h.RemoveEntry)           // discard an entry
			authed.POST("/leads/:leadId/queue/:fileId/commit", h.CommitEntry)      // approve & upload

			// Checklist
			authed.GET("/leads/:leadId/checklist", h.GetChecklist)                 // slots + derived status
			authed.POST("/leads/:leadId/checklist/:slotId/select", h.SelectSlot)   // checklist -> upload pin
			authed.DELETE("/leads/:leadId/checklist/selection", h.ClearSelection)  // drop the pin

			// Committed documents
			authed.GET("/leads/:leadId/documents", h.ListDocuments)
		}
	}
}
