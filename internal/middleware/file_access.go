package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/filevault/filevault/internal/permissions"
	"github.com/filevault/filevault/pkg/errors"
	"github.com/filevault/filevault/pkg/metrics"
	"github.com/filevault/filevault/pkg/response"
)

// FileAccess is the interception enforcement adapter: it derives the
// required capability from the HTTP method instead of a declared name,
// enforcing a coarser, structurally-derived policy. It consults the
// same engine as RequireCapability, so stacking both on a route ANDs
// their verdicts. Requests without a parsable file id pass through
// untouched; only the declarative layer, when present, still gates
// them.
func FileAccess(engine *permissions.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileID := pathFileID(c)
		if fileID == "" {
			c.Next()
			return
		}

		identity := IdentityFrom(c)
		if identity == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		capability := permissions.CapabilityForMethod(c.Request.Method)

		allowed, err := engine.Authorize(c.Request.Context(), identity, capability, fileID)
		if err != nil {
			metrics.AuthorizationDecisions.WithLabelValues(capability, "error").Inc()
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}
		if !allowed {
			metrics.AuthorizationDecisions.WithLabelValues(capability, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.AuthorizationDecisions.WithLabelValues(capability, "allowed").Inc()
		c.Next()
	}
}
