package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type seenPostsRequest struct {
	PostIDs []any `json:"postIds"`
}

// ids keeps the string elements; anything else is dropped like a malformed id.
func (r seenPostsRequest) ids() []string {
	out := make([]string, 0, len(r.PostIDs))
	for _, v := range r.PostIDs {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (h *Handler) RecordSeenPosts(c *gin.Context) {
	var req seenPostsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "postIds array is required")
		return
	}

	if len(req.PostIDs) == 0 {
		badRequest(c, "postIds array is required")
		return
	}

	res, err := h.svc.History.RecordSeen(c.Request.Context(), currentUser(c), req.ids())
	if err != nil {
		respondError(c, err, "Failed to record seen posts")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SeenPosts(c *gin.Context) {
	page, err := h.svc.History.SeenPosts(c.Request.Context(), currentUser(c), pageQuery(c, 50))
	if err != nil {
		respondError(c, err, "Failed to get seen posts")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) ClearSeenPosts(c *gin.Context) {
	if err := h.svc.History.Clear(c.Request.Context(), currentUser(c)); err != nil {
		respondError(c, err, "Failed to clear seen posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Seen posts history cleared"})
}
