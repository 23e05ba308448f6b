package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meditrade/pricing/internal/authorization"
)

// HeaderRole carries the caller's role, resolved by the auth gateway in
// front of this service.
const HeaderRole = "X-Role"

const contextRoleKey = "role"

func (s *Server) RequirePermission(perm authorization.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := authorization.Role(strings.TrimSpace(c.GetHeader(HeaderRole)))
		if role == "" || !authorization.Known(role) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !authorization.Can(role, perm) {
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Set(contextRoleKey, string(role))
		c.Next()
	}
}
