package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/emhgit/pdf-voice-assistant/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Auth validates the bearer session token and stores it in the request
// context. The token is the opaque session identifier minted on PDF upload;
// there is no identity system behind it. Only presence and format are checked
// here — an unknown token passes through and the handler answers 404 when the
// session lookup misses, so the 401/404 split is consistent: 401 means the
// header is missing or malformed, 404 means the token matches no session.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid token"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid token"})
			c.Abort()
			return
		}

		token := parts[1]

		// Store the token in both contexts: gin for handlers, request for logging
		c.Set("session_token", token)
		ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, token)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetSessionToken gets the session token from gin context
func GetSessionToken(c *gin.Context) string {
	if token, exists := c.Get("session_token"); exists {
		return token.(string)
	}
	return ""
}
