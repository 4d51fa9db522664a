package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SuggestedUsers(c *gin.Context) {
	users, err := h.svc.Social.SuggestedUsers(c.Request.Context(), currentUser(c), limitQuery(c, 20))
	if err != nil {
		respondError(c, err, "Failed to get suggested users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.svc.Social.Profile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err, "Failed to get user profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) Follow(c *gin.Context) {
	res, err := h.svc.Social.Follow(c.Request.Context(), currentUser(c), c.Param("userId"))
	if err != nil {
		respondError(c, err, "Failed to follow/unfollow user")
		return
	}
	c.JSON(http.StatusOK, res)
}
