package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"natours/internal/apperror"
	"natours/internal/models"
)

const (
	// CookieName carries the session token for browser clients.
	CookieName = "jwt"

	userKey = "currentUser"
)

// Authenticator resolves a session token to its account.
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, token string) (*models.User, error)
	OptionalAuthenticate(ctx context.Context, token string) *models.User
}

// TokenFromRequest reads the bearer token, falling back to the jwt cookie.
func TokenFromRequest(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if tok := strings.TrimSpace(parts[1]); tok != "" {
			return tok
		}
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

// Protect rejects the request unless it carries a valid session token.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			Abort(c, apperror.ErrUnauthenticated)
			return
		}
		user, err := auth.AuthenticateRequest(c.Request.Context(), token)
		if err != nil {
			Abort(c, err)
			return
		}
		SetCurrentUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when the jwt cookie is valid and never
// fails. The logout placeholder simply resolves to no user.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(CookieName); err == nil {
			if user := auth.OptionalAuthenticate(c.Request.Context(), cookie); user != nil {
				SetCurrentUser(c, user)
			}
		}
		c.Next()
	}
}

func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// Abort records err for ErrorHandler and stops the chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
