package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports database reachability
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports liveness, AI configuration and database reachability
// GET /health
func Health(assistant ChatAssistant, database Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code, dbStatus := "healthy", http.StatusOK, "ok"

		if database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := database.PingContext(ctx); err != nil {
				status, code, dbStatus = "degraded", http.StatusServiceUnavailable, "unavailable"
			}
		}

		c.JSON(code, gin.H{
			"status":        status,
			"database":      dbStatus,
			"ai_configured": assistant.Configured(),
			"time":          time.Now().Unix(),
		})
	}
}
