package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinelhive/internal/app"
	"sentinelhive/internal/metrics"
	"sentinelhive/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type LoginRequest struct {
	UserID   string `json:"user_id" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=128"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	tok, err := h.authService.Login(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidCredential):
			metrics.LoginTotal.WithLabelValues("rejected").Inc()
			response.Error(c, http.StatusUnauthorized, "invalid credentials")
		default:
			metrics.LoginTotal.WithLabelValues("error").Inc()
			response.Error(c, http.StatusInternalServerError, "login failed")
		}
		return
	}

	metrics.LoginTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), c.GetHeader("Authorization")); err != nil {
		switch {
		case errors.Is(err, app.ErrMalformedHeader), errors.Is(err, app.ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, "invalid or expired token")
		default:
			response.Error(c, http.StatusInternalServerError, "logout failed")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) Check(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		response.Error(c, http.StatusBadRequest, "token query parameter required")
		return
	}

	status := "revoked"
	if h.authService.CheckToken(c.Request.Context(), tok) {
		status = "active"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
