package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Users(c *gin.Context) {
	users, err := h.svc.Directory.Users(c.Request.Context(), c.Query("search"), limitQuery(c, 50))
	if err != nil {
		respondError(c, err, "Failed to get users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) Categories(c *gin.Context) {
	categories, err := h.svc.Directory.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
