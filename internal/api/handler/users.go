package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whereabouts/backend/internal/models"
)

type createUserRequest struct {
	Name  string  `json:"name" binding:"required"`
	Email *string `json:"email" binding:"omitempty,email"`
}

type userWithPresence struct {
	models.User
	ActiveCheckIn *models.CheckInView `json:"activeCheckIn"`
}

// ListUsers returns every user together with their active check-in, so
// a roster view needs no second round trip.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	checkIns, err := h.Presence.ActiveCheckIns(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	byUser := make(map[string]*models.CheckInView, len(checkIns))
	for i := range checkIns {
		byUser[checkIns[i].UserID] = &checkIns[i]
	}

	out := make([]userWithPresence, 0, len(users))
	for _, user := range users {
		out = append(out, userWithPresence{User: user, ActiveCheckIn: byUser[user.ID]})
	}
	c.JSON(http.StatusOK, out)
}

// CreateUser registers a user. A taken name or email is a conflict.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{Name: req.Name, Email: req.Email}
	if err := h.Store.SaveUser(c.Request.Context(), &user); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
