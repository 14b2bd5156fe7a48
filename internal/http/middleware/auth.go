package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"strata-violations/internal/auth"
	"strata-violations/internal/model"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
	principalContextKey = "principal"
	occupantContextKey  = "occupant"
)

func bearerToken(c *gin.Context) (string, bool) {
	raw := c.GetHeader(authorizationHeader)
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing"})
		return "", false
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) || strings.TrimSpace(parts[1]) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Auth accepts staff access tokens only.
func Auth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := parser.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		principal := model.Principal{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// OccupantAuth accepts the session tokens issued after email verification.
func OccupantAuth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := parser.ParseOccupant(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, verify your email again"})
			return
		}
		session := model.OccupantSession{
			PersonID:    claims.PersonID,
			ViolationID: claims.ViolationID,
			LinkToken:   claims.LinkToken,
		}
		c.Set(occupantContextKey, session)
		c.Next()
	}
}

// RequireRoles must run after Auth.
func RequireRoles(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "principal missing"})
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	}
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}
	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}
	return principal, true
}

func MustOccupant(c *gin.Context) (model.OccupantSession, bool) {
	value, exists := c.Get(occupantContextKey)
	if !exists {
		return model.OccupantSession{}, false
	}
	session, ok := value.(model.OccupantSession)
	if !ok {
		return model.OccupantSession{}, false
	}
	return session, true
}
