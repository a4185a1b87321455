package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filevault/filevault/internal/middleware"
	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/internal/permissions"
	appErrors "github.com/filevault/filevault/pkg/errors"
	"github.com/filevault/filevault/pkg/response"
)

// PermissionHandler exposes grant/revoke/list over the ledger via the
// authorization engine.
type PermissionHandler struct {
	engine *permissions.Engine
}

func NewPermissionHandler(engine *permissions.Engine) *PermissionHandler {
	return &PermissionHandler{engine: engine}
}

type grantRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
	Mask   uint8  `json:"mask" validate:"required,max=15"`
}

type entryPayload struct {
	UserID     string `json:"user_id"`
	FileID     string `json:"file_id"`
	Mask       uint8  `json:"mask"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// POST /api/files/:fileId/permissions
func (h *PermissionHandler) Grant(c *gin.Context) {
	var req grantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	granted, err := h.engine.GrantPermission(
		c.Request.Context(),
		middleware.IdentityFrom(c),
		req.UserID,
		c.Param("fileId"),
		models.PermissionMask(req.Mask),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !granted {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"granted": true})
}

// DELETE /api/files/:fileId/permissions
func (h *PermissionHandler) Revoke(c *gin.Context) {
	var req grantRequest
	if !bindAndValidate(c, &req) {
		return
	}

	revoked, err := h.engine.RevokePermission(
		c.Request.Context(),
		middleware.IdentityFrom(c),
		req.UserID,
		c.Param("fileId"),
		models.PermissionMask(req.Mask),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !revoked {
		// Either the actor lacked full control or no entry existed.
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/files/:fileId/permissions?user_id=...
func (h *PermissionHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		identity := middleware.IdentityFrom(c)
		if identity == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		userID = identity.ID
	}

	entries, err := h.engine.ListUserFilePermissions(c.Request.Context(), userID, c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		p := entryPayload{
			UserID:    entry.UserID,
			FileID:    entry.FileID,
			Mask:      uint8(entry.Mask),
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if entry.ModifiedAt != nil {
			p.ModifiedAt = entry.ModifiedAt.UTC().Format(time.RFC3339)
		}
		payload = append(payload, p)
	}

	response.Success(c, http.StatusOK, payload)
}

// GET /api/files/accessible?capability=file.view
func (h *PermissionHandler) ListAccessible(c *gin.Context) {
	capability := c.DefaultQuery("capability", permissions.CapabilityView)
	if _, ok := permissions.MaskFor(capability); !ok {
		response.Error(c, appErrors.NewBadRequest("unknown capability: "+capability))
		return
	}

	ids, err := h.engine.ListAccessible(c.Request.Context(), middleware.IdentityFrom(c), capability)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"file_ids": ids})
}
