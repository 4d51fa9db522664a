package handlers

import (
	"net/http"

	"socialfeed/services"
	"socialfeed/validation"

	"github.com/gin-gonic/gin"
)

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) Timeline(c *gin.Context) {
	posts, err := h.svc.Social.Timeline(c.Request.Context(), currentUser(c), pageQuery(c, 10))
	if err != nil {
		respondError(c, err, "Failed to get timeline")
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req services.CreatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err, "Invalid request body"))
		return
	}

	post, err := h.svc.Social.CreatePost(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err, "Failed to create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) LikePost(c *gin.Context) {
	res, err := h.svc.Social.LikePost(c.Request.Context(), currentUser(c), c.Param("postId"))
	if err != nil {
		respondError(c, err, "Failed to like post")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CommentOnPost(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Comment content is required")
		return
	}

	comment, err := h.svc.Social.CommentOnPost(c.Request.Context(), currentUser(c), c.Param("postId"), req.Content)
	if err != nil {
		respondError(c, err, "Failed to add comment")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) PostComments(c *gin.Context) {
	comments, err := h.svc.Social.PostComments(c.Request.Context(), c.Param("postId"), pageQuery(c, 20))
	if err != nil {
		respondError(c, err, "Failed to get comments")
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *Handler) LikeComment(c *gin.Context) {
	res, err := h.svc.Social.LikeComment(c.Request.Context(), currentUser(c), c.Param("commentId"))
	if err != nil {
		respondError(c, err, "Failed to like comment")
		return
	}
	c.JSON(http.StatusOK, res)
}
