// Package middleware provides gin middleware for authentication and CSRF
// protection. Sessions arrive either as a Bearer token or as the session
// cookie set by the main site; both carry the same JWT.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nightpulse/gamification/internal/config"
	"github.com/nightpulse/gamification/pkg/logger"
)

// UserIDKey is the gin context key holding the authenticated user ID.
const UserIDKey = "user_id"

// UsernameKey is the gin context key holding the authenticated username.
const UsernameKey = "username"

// AuthRequired validates the session JWT and stores the user identity in the
// request context. Unauthenticated requests get a 401.
func AuthRequired(cfg *config.AuthConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c, cfg)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			log.Debug().Err(err).Msg("Rejected invalid session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		if exp, ok := claims["exp"].(float64); ok && time.Unix(int64(exp), 0).Before(time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		}

		userID, ok := claims["user_id"].(float64)
		if !ok || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		c.Set(UserIDKey, uint(userID))
		if username, ok := claims["username"].(string); ok {
			c.Set(UsernameKey, username)
		}

		c.Next()
	}
}

// extractToken pulls the JWT from the Authorization header, falling back to
// the session cookie used by the browser frontend.
func extractToken(c *gin.Context, cfg *config.AuthConfig) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	if cfg.SessionCookie != "" {
		if cookie, err := c.Cookie(cfg.SessionCookie); err == nil {
			return cookie
		}
	}

	return ""
}

// CSRFProtection enforces the double-submit cookie scheme on mutating
// requests: the CSRF cookie value must match the CSRF header. Requests
// authenticated with a Bearer token are exempt since they never ride on
// ambient cookies.
func CSRFProtection(cfg *config.AuthConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		cookie, err := c.Cookie(cfg.CSRFCookieName)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing CSRF token"})
			return
		}

		header := c.GetHeader(cfg.CSRFHeaderName)
		if header == "" || header != cookie {
			log.Debug().Str("path", c.Request.URL.Path).Msg("Rejected request with CSRF mismatch")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token mismatch"})
			return
		}

		c.Next()
	}
}

// CurrentUserID returns the authenticated user ID from the gin context.
func CurrentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}
