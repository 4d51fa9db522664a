package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health is the liveness probe. It fails when the database is unreachable.
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
				"time":     time.Now().Unix(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "connected",
		"time":     time.Now().Unix(),
	})
}

// NotFound answers unknown routes with a JSON error.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "Endpoint not found",
		"path":  c.Request.URL.Path,
	})
}
