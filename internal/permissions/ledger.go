package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/filevault/filevault/internal/models"
	apperrors "github.com/filevault/filevault/pkg/errors"
	"github.com/filevault/filevault/pkg/logger"
	"github.com/filevault/filevault/pkg/metrics"
)

// grantRetries bounds the internal retry loop for conflicting
// read-modify-write attempts on the same ledger row.
const grantRetries = 3

// Ledger is the durable mapping of (user, file) to a permission mask.
// Grants merge bits with OR, revokes clear them with AND-NOT, and a row
// whose mask reaches zero is deleted. All mutations serialise per row:
// a bit set by one concurrent caller must never be lost to another.
type Ledger struct {
	db    *gorm.DB
	clock func() time.Time
	log   *zap.Logger
}

// NewLedger constructs a permission ledger backed by the provided database.
func NewLedger(db *gorm.DB) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("permission ledger: db is required")
	}
	return &Ledger{
		db:    db,
		clock: time.Now,
		log:   logger.WithModule("ledger"),
	}, nil
}

// Check reports whether an entry exists whose mask is a superset of
// every requested bit. Holding some of a multi-bit requirement is not
// enough.
func (l *Ledger) Check(ctx context.Context, userID, fileID string, required models.PermissionMask) (bool, error) {
	var entry models.FilePermission
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND file_id = ?", userID, fileID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("permission ledger: check: %w", err)
	}

	return entry.Mask.Has(required), nil
}

// Grant merges mask into the target's entry for the file, creating the
// entry when absent. The acting identity must hold full control on the
// file (through an elevated role, ownership, or its own ledger entry),
// otherwise no mutation occurs and false is returned.
func (l *Ledger) Grant(ctx context.Context, actor *models.Identity, targetUserID, fileID string, mask models.PermissionMask) (bool, error) {
	if mask.IsZero() {
		return false, nil
	}

	allowed, err := l.canAdminister(ctx, actor, fileID)
	if err != nil || !allowed {
		metrics.LedgerMutations.WithLabelValues("grant", "denied").Inc()
		return false, err
	}

	err = l.withRowRetry(ctx, "grant", func(tx *gorm.DB) error {
		var entry models.FilePermission
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND file_id = ?", targetUserID, fileID).
			First(&entry).Error

		switch {
		case err == nil:
			now := l.clock().UTC()
			entry.Mask |= mask
			entry.ModifiedAt = &now
			return tx.Save(&entry).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.FilePermission{
				UserID: targetUserID,
				FileID: fileID,
				Mask:   mask,
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		metrics.LedgerMutations.WithLabelValues("grant", "error").Inc()
		return false, err
	}

	metrics.LedgerMutations.WithLabelValues("grant", "success").Inc()
	l.log.Info("permission granted",
		zap.String("actor", actor.ID),
		zap.String("target", targetUserID),
		zap.String("file", fileID),
		zap.String("mask", mask.String()),
	)
	return true, nil
}

// Revoke clears mask bits from the target's entry. The entry is removed
// entirely once its mask reaches zero; revoking against a missing entry
// returns false. The same full-control precondition as Grant applies.
func (l *Ledger) Revoke(ctx context.Context, actor *models.Identity, targetUserID, fileID string, mask models.PermissionMask) (bool, error) {
	allowed, err := l.canAdminister(ctx, actor, fileID)
	if err != nil || !allowed {
		metrics.LedgerMutations.WithLabelValues("revoke", "denied").Inc()
		return false, err
	}

	revoked := false
	err = l.withRowRetry(ctx, "revoke", func(tx *gorm.DB) error {
		revoked = false

		var entry models.FilePermission
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND file_id = ?", targetUserID, fileID).
			First(&entry).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // nothing to revoke
			}
			return err
		}

		entry.Mask &^= mask
		revoked = true

		if entry.Mask.IsZero() {
			return tx.Delete(&entry).Error
		}

		now := l.clock().UTC()
		entry.ModifiedAt = &now
		return tx.Save(&entry).Error
	})
	if err != nil {
		metrics.LedgerMutations.WithLabelValues("revoke", "error").Inc()
		return false, err
	}

	if !revoked {
		metrics.LedgerMutations.WithLabelValues("revoke", "missing").Inc()
		return false, nil
	}

	metrics.LedgerMutations.WithLabelValues("revoke", "success").Inc()
	l.log.Info("permission revoked",
		zap.String("actor", actor.ID),
		zap.String("target", targetUserID),
		zap.String("file", fileID),
		zap.String("mask", mask.String()),
	)
	return true, nil
}

// ListForUserAndFile returns the ledger entries for a (user, file) pair.
func (l *Ledger) ListForUserAndFile(ctx context.Context, userID, fileID string) ([]models.FilePermission, error) {
	var entries []models.FilePermission
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND file_id = ?", userID, fileID).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("permission ledger: list entries: %w", err)
	}
	return entries, nil
}

// ListAccessibleFiles returns every non-deleted file on which the user
// holds an entry satisfying the superset rule.
func (l *Ledger) ListAccessibleFiles(ctx context.Context, userID string, required models.PermissionMask) ([]models.File, error) {
	var files []models.File
	err := l.db.WithContext(ctx).
		Model(&models.File{}).
		Joins("JOIN file_permissions ON file_permissions.file_id = files.id").
		Where("file_permissions.user_id = ?", userID).
		Where("file_permissions.mask & ? = ?", uint8(required), uint8(required)).
		Where("files.is_deleted = ?", false).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("permission ledger: list accessible: %w", err)
	}
	return files, nil
}

// canAdminister decides whether the actor may mutate grants on the
// file. Full control can come from an elevated role, ownership, or the
// actor's own ledger entry; plain holders of lesser masks cannot share.
func (l *Ledger) canAdminister(ctx context.Context, actor *models.Identity, fileID string) (bool, error) {
	if actor == nil {
		return false, nil
	}

	if actor.HasRole(models.RoleAdministrator) || actor.HasRole(models.RoleFileManager) {
		return true, nil
	}

	if actor.OwnsFile(fileID) {
		return true, nil
	}

	return l.Check(ctx, actor.ID, fileID, models.PermissionFullControl)
}

// withRowRetry runs fn in a transaction, retrying a bounded number of
// times when the row could not be serialised. Exhausted retries surface
// as a conflict, never as a denial.
func (l *Ledger) withRowRetry(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 0; attempt < grantRetries; attempt++ {
		lastErr = l.db.WithContext(ctx).Transaction(fn)
		if lastErr == nil {
			return nil
		}
		if !isRetryableConflict(lastErr) {
			return fmt.Errorf("permission ledger: %s: %w", op, lastErr)
		}
		l.log.Debug("ledger row conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	return apperrors.ErrConflict.WithInternal(lastErr)
}

func isRetryableConflict(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports contention as "database is locked" or "database
	// table is locked" depending on the lock that lost.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "unique constraint")
}
