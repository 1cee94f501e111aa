package http

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"video-service/pkg/config"
)

const ctxUserIDKey = "user_id"

type sessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Identity extracts the caller's user id from a bearer session token and
// stores it in the request context. Requests without a valid token pass
// through anonymous; the authorization layer decides whether that matters.
func Identity(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWT.Secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err == nil && token.Valid {
			userID := claims.UserID
			if userID == "" {
				userID = claims.Subject
			}
			if userID != "" {
				c.Set(ctxUserIDKey, userID)
			}
		}
		c.Next()
	}
}

// CORS restricts browser access to the configured frontend origin and allows
// the headers media players attach.
func CORS(cfg *config.Config) gin.HandlerFunc {
	origin := cfg.Access.FrontendOrigin
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		if origin != "*" {
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// userID returns the authenticated caller id, empty when anonymous.
func userID(c *gin.Context) string {
	return c.GetString(ctxUserIDKey)
}
