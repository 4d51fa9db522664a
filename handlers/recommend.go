package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AITimeline(c *gin.Context) {
	page := pageQuery(c, 20)
	posts, err := h.svc.Recommendations.Timeline(c.Request.Context(), currentUser(c), page)
	if err != nil {
		respondError(c, err, "Failed to get AI timeline")
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) AIExplore(c *gin.Context) {
	posts, err := h.svc.Recommendations.Explore(c.Request.Context(), currentUser(c), limitQuery(c, 15))
	if err != nil {
		respondError(c, err, "Failed to get explore posts")
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) RecommendedUsers(c *gin.Context) {
	users, err := h.svc.Recommendations.RecommendedUsers(c.Request.Context(), currentUser(c), limitQuery(c, 10))
	if err != nil {
		respondError(c, err, "Failed to get recommended users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) TrainModel(c *gin.Context) {
	res, err := h.svc.Recommendations.TrainModel(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to train model")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ModelStatus(c *gin.Context) {
	status, err := h.svc.Recommendations.ModelStatus(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get model status")
		return
	}
	c.JSON(http.StatusOK, status)
}

// AIHealth reports the recommendation service's own health check.
func (h *Handler) AIHealth(c *gin.Context) {
	health, err := h.svc.Recommendations.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "Recommendation service unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, health)
}
