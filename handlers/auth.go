package handlers

import (
	"net/http"

	"socialfeed/services"
	"socialfeed/validation"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and password are required")
		return
	}

	res, err := h.svc.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Signup(c *gin.Context) {
	var req services.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Message(err, "Invalid request body"))
		return
	}

	res, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Signup failed")
		return
	}
	c.JSON(http.StatusCreated, res)
}
