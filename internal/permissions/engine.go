package permissions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/pkg/logger"
)

// Engine composes the role authority, ownership data, and the
// permission ledger into one decision function. Every enforcement point
// calls Authorize so the precedence below is the single reviewable
// artifact:
//
//	role blanket -> resource-less rule -> ownership -> ledger -> deny
type Engine struct {
	db     *gorm.DB
	roles  RoleAuthority
	ledger *Ledger
	log    *zap.Logger
}

// NewEngine constructs an authorization engine backed by the database.
func NewEngine(db *gorm.DB) (*Engine, error) {
	if db == nil {
		return nil, errors.New("authorization engine: db is required")
	}

	ledger, err := NewLedger(db)
	if err != nil {
		return nil, err
	}

	return &Engine{
		db:     db,
		ledger: ledger,
		log:    logger.WithModule("authz"),
	}, nil
}

// Ledger exposes the underlying permission ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Authorize answers whether the identity may exercise the capability,
// optionally against a specific file (fileID may be empty for
// resource-less capabilities such as upload).
func (e *Engine) Authorize(ctx context.Context, identity *models.Identity, capability, fileID string) (bool, error) {
	if identity == nil {
		return false, nil
	}

	// 1. Blanket roles bypass everything. A miss is not a denial.
	if e.roles.BlanketAccess(identity, capability) == VerdictAllow {
		return true, nil
	}

	// 2. Without a file, only creation is universally permitted: a new
	// file cannot have pre-existing grants.
	if fileID == "" {
		return capability == CapabilityUpload, nil
	}

	// 3. Ownership is implicit full control and never a ledger entry.
	if identity.OwnsFile(fileID) {
		return true, nil
	}

	// 4. Explicit ledger grant. The identity carries the grants that
	// were loaded with it, so a hit answers without another query; a
	// miss still consults the ledger in case the grant arrived after
	// the identity was resolved.
	required, ok := MaskFor(capability)
	if !ok {
		e.log.Debug("capability has no mask mapping",
			zap.String("capability", capability),
			zap.String("file", fileID),
		)
		return false, nil
	}

	if mask, held := identity.GrantFor(fileID); held && mask.Has(required) {
		return true, nil
	}

	return e.ledger.Check(ctx, identity.ID, fileID, required)
}

// ListAccessible returns the ids of files the identity can exercise the
// capability on through explicit ledger grants. Soft-deleted files are
// filtered again here even though the ledger already excludes them.
func (e *Engine) ListAccessible(ctx context.Context, identity *models.Identity, capability string) ([]string, error) {
	if identity == nil {
		return nil, nil
	}

	required, ok := MaskFor(capability)
	if !ok {
		return nil, fmt.Errorf("authorization engine: capability %q has no mask", capability)
	}

	files, err := e.ledger.ListAccessibleFiles(ctx, identity.ID, required)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDeleted {
			continue
		}
		ids = append(ids, file.ID)
	}
	return ids, nil
}

// GrantPermission merges mask bits into the target's ledger entry on
// behalf of the actor. See Ledger.Grant for the precondition.
func (e *Engine) GrantPermission(ctx context.Context, actor *models.Identity, targetUserID, fileID string, mask models.PermissionMask) (bool, error) {
	return e.ledger.Grant(ctx, actor, targetUserID, fileID, mask)
}

// RevokePermission clears mask bits from the target's ledger entry on
// behalf of the actor.
func (e *Engine) RevokePermission(ctx context.Context, actor *models.Identity, targetUserID, fileID string, mask models.PermissionMask) (bool, error) {
	return e.ledger.Revoke(ctx, actor, targetUserID, fileID, mask)
}

// ListUserFilePermissions returns the ledger entries for a (user, file) pair.
func (e *Engine) ListUserFilePermissions(ctx context.Context, userID, fileID string) ([]models.FilePermission, error) {
	return e.ledger.ListForUserAndFile(ctx, userID, fileID)
}
