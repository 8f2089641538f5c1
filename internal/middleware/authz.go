package middleware

import (
	"github.com/gin-gonic/gin"

	"natours/internal/apperror"
	"natours/internal/authz"
)

// RestrictTo lets through only users whose role is in roles. It must run
// after Protect.
func RestrictTo(roles ...authz.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			Abort(c, apperror.ErrUnauthenticated)
			return
		}
		if !authz.In(user.Role, roles...) {
			Abort(c, apperror.ErrForbidden)
			return
		}
		c.Next()
	}
}
