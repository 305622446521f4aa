package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/model"
)

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// CreateUser handles POST /api/users. This only registers a requester
// identity; credentials and sessions are handled upstream.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := strings.TrimSpace(req.Username)
	if len(username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be at least 3 characters"})
		return
	}

	user := model.User{
		Username: username,
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Role:     "user",
		IsActive: true,
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
