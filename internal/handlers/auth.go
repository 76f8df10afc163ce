package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed/internal/errs"
	"github.com/snapfeed/snapfeed/internal/middleware"
	"github.com/snapfeed/snapfeed/internal/services"
)

type AuthHandler struct {
	userService *services.UserService
	jwtConfig   *middleware.JWTConfig
}

func NewAuthHandler(userService *services.UserService, jwtConfig *middleware.JWTConfig) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtConfig:   jwtConfig,
	}
}

// Signup creates the account but does not log the user in; the client is
// expected to call Login next.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.userService.Signup(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Signup successful. Please login to continue.",
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		// Bad credentials are a 401 here, not the usual 403 mapping.
		if errs.IsForbidden(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, h.jwtConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}
