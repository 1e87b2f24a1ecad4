package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"whereabouts/backend/internal/models"
)

type loginRequest struct {
	Name string `json:"name" binding:"required"`
}

// Login exchanges a user name for a signed token, registering the user
// on first sight. Deliberately secretless: the name is the identity, as
// the surrounding app intends.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Store.FindUserByName(c.Request.Context(), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if user == nil {
		user = &models.User{Name: req.Name}
		if err := h.Store.SaveUser(c.Request.Context(), user); err != nil {
			h.respondError(c, err)
			return
		}
	}

	token, err := h.generateToken(user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) generateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(h.TokenTTL).Unix(),
		"iss":     "whereabouts-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

var errInvalidToken = errors.New("invalid or expired token")

// parseToken validates a token and extracts the user ID.
func (h *Handler) parseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", errInvalidToken
	}
	return userID, nil
}

// bearerToken pulls a token from the Authorization header or, for
// transports that cannot set headers (EventSource), the query string.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
