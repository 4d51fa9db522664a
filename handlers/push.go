package handlers

import (
	"net/http"

	"socialfeed/services"
	"socialfeed/validation"

	"github.com/gin-gonic/gin"
)

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

func (h *Handler) VapidPublicKey(c *gin.Context) {
	if h.push == nil || h.push.PublicKey() == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.push.PublicKey()})
}

func (h *Handler) SubscribePush(c *gin.Context) {
	var req services.SubscribeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err, "Invalid subscription"))
		return
	}

	if _, err := h.svc.Push.Subscribe(c.Request.Context(), currentUser(c), req); err != nil {
		respondError(c, err, "Failed to save subscription")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Push subscription saved"})
}

func (h *Handler) UnsubscribePush(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err, "Invalid request body"))
		return
	}

	if err := h.svc.Push.Unsubscribe(c.Request.Context(), currentUser(c), req.Endpoint); err != nil {
		respondError(c, err, "Failed to remove subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription removed"})
}
