package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/filevault/filevault/internal/auth"
	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/pkg/errors"
	"github.com/filevault/filevault/pkg/response"
)

const (
	CtxIdentityKey = "authIdentity"
	CtxUserIDKey   = "userID"
)

// Auth enforces bearer authentication and resolves the token into a
// fresh Identity. Every resolution failure is normalised to 401.
func Auth(identities *iauth.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		identity := identities.Resolve(c.Request.Context(), strings.TrimSpace(authz[7:]))
		if identity == nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxIdentityKey, identity)
		c.Set(CtxUserIDKey, identity.ID)

		c.Next()
	}
}

// IdentityFrom extracts the resolved identity from the gin context.
func IdentityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}
