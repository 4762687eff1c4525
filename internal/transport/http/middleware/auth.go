package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sentinelhive/internal/app"
	"sentinelhive/internal/transport/http/response"
)

const ContextUserIDKey = "user_id"

// Auth guards protected endpoints with bearer token validation. All
// rejection causes collapse to a single 401 body.
func Auth(authService *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authService.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, app.ErrMalformedHeader) || errors.Is(err, app.ErrUnauthorized) {
				response.AbortError(c, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			response.AbortError(c, http.StatusInternalServerError, "authentication failed")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}
