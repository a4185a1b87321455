package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/internal/permissions"
	"github.com/filevault/filevault/internal/storage"
	"github.com/filevault/filevault/pkg/crypto"
	apperrors "github.com/filevault/filevault/pkg/errors"
	"github.com/filevault/filevault/pkg/logger"
)

// ErrFileNotFound covers both missing and soft-deleted records. It
// surfaces before any permission check, so an unauthorized caller can
// distinguish absent from forbidden; kept to match existing behaviour.
var ErrFileNotFound = apperrors.New("FILE_NOT_FOUND", "File not found", http.StatusNotFound)

const storageKeyLength = 24

// UploadInput describes a new file.
type UploadInput struct {
	Name        string
	ContentType string
	Data        []byte
	Metadata    map[string]any
}

// UpdateInput describes a content/metadata replacement. Nil fields are
// left untouched.
type UpdateInput struct {
	Name     string
	Data     []byte
	Metadata map[string]any
}

// FileService manages file records and their bytes. Authorization is
// not decided here; the enforcement adapters gate every route before a
// handler reaches this service.
type FileService struct {
	db     *gorm.DB
	store  storage.Store
	engine *permissions.Engine
	audit  *AuditService
	log    *zap.Logger
}

// NewFileService constructs a FileService.
func NewFileService(db *gorm.DB, store storage.Store, engine *permissions.Engine, audit *AuditService) (*FileService, error) {
	if db == nil {
		return nil, errors.New("file service: db is required")
	}
	if store == nil {
		return nil, errors.New("file service: content store is required")
	}
	if engine == nil {
		return nil, errors.New("file service: authorization engine is required")
	}

	return &FileService{
		db:     db,
		store:  store,
		engine: engine,
		audit:  audit,
		log:    logger.WithModule("files"),
	}, nil
}

// Upload stores the bytes and creates the metadata record with the
// caller attributed as owner.
func (s *FileService) Upload(ctx context.Context, owner *models.Identity, input UploadInput) (*models.File, error) {
	ctx = ensureContext(ctx)

	if owner == nil {
		return nil, apperrors.ErrUnauthorized
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("file name is required")
	}
	if len(input.Data) == 0 {
		return nil, apperrors.NewBadRequest("file content is required")
	}

	key, err := crypto.GenerateKey(storageKeyLength)
	if err != nil {
		return nil, fmt.Errorf("file service: generate storage key: %w", err)
	}

	if err := s.store.Put(ctx, key, input.Data); err != nil {
		return nil, fmt.Errorf("file service: store content: %w", err)
	}

	file := &models.File{
		Name:        name,
		ContentType: strings.TrimSpace(input.ContentType),
		Size:        int64(len(input.Data)),
		StorageKey:  key,
		OwnerID:     owner.ID,
		Metadata:    datatypes.JSONMap(input.Metadata),
	}

	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Warn("orphaned content after failed create", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("file service: create record: %w", err)
	}

	s.recordAudit(ctx, owner, "file.upload", file.ID, "success", map[string]any{"name": name, "size": file.Size})

	return file, nil
}

// Get loads a live file record. Missing and soft-deleted records are
// indistinguishable to the caller.
func (s *FileService) Get(ctx context.Context, fileID string) (*models.File, error) {
	ctx = ensureContext(ctx)

	var file models.File
	err := s.db.WithContext(ctx).First(&file, "id = ? AND is_deleted = ?", fileID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("file service: load file: %w", err)
	}
	return &file, nil
}

// Download returns the record and its bytes.
func (s *FileService) Download(ctx context.Context, fileID string) (*models.File, []byte, error) {
	file, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.store.Get(ensureContext(ctx), file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("file service: read content: %w", err)
	}
	return file, data, nil
}

// Update replaces content and/or metadata of a live file.
func (s *FileService) Update(ctx context.Context, actor *models.Identity, fileID string, input UpdateInput) (*models.File, error) {
	ctx = ensureContext(ctx)

	file, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" && name != file.Name {
		updates["name"] = name
	}
	if input.Metadata != nil {
		updates["metadata"] = datatypes.JSONMap(input.Metadata)
	}

	if len(input.Data) > 0 {
		if err := s.store.Put(ctx, file.StorageKey, input.Data); err != nil {
			return nil, fmt.Errorf("file service: replace content: %w", err)
		}
		updates["size"] = int64(len(input.Data))
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(file).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("file service: update record: %w", err)
		}
	}

	s.recordAudit(ctx, actor, "file.update", file.ID, "success", nil)

	return s.Get(ctx, fileID)
}

// SoftDelete marks the file deleted. The row, its ledger entries, and
// the stored bytes all remain; the file simply vanishes from discovery
// and accessibility queries.
func (s *FileService) SoftDelete(ctx context.Context, actor *models.Identity, fileID string) error {
	ctx = ensureContext(ctx)

	file, err := s.Get(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(file).Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("file service: soft delete: %w", err)
	}

	s.recordAudit(ctx, actor, "file.delete", file.ID, "success", nil)
	return nil
}

// ListAccessible returns the live files the identity may view: all of
// them for blanket roles, otherwise owned files plus explicit grants.
func (s *FileService) ListAccessible(ctx context.Context, identity *models.Identity) ([]models.File, error) {
	ctx = ensureContext(ctx)

	if identity == nil {
		return nil, apperrors.ErrUnauthorized
	}

	if identity.HasRole(models.RoleAdministrator) || identity.HasRole(models.RoleFileManager) {
		var files []models.File
		if err := s.db.WithContext(ctx).Where("is_deleted = ?", false).Find(&files).Error; err != nil {
			return nil, fmt.Errorf("file service: list all: %w", err)
		}
		return files, nil
	}

	grantedIDs, err := s.engine.ListAccessible(ctx, identity, permissions.CapabilityView)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("is_deleted = ?", false)
	if len(grantedIDs) > 0 {
		query = query.Where("owner_id = ? OR id IN ?", identity.ID, grantedIDs)
	} else {
		query = query.Where("owner_id = ?", identity.ID)
	}

	var files []models.File
	if err := query.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("file service: list accessible: %w", err)
	}
	return files, nil
}

func (s *FileService) recordAudit(ctx context.Context, actor *models.Identity, action, resource, result string, metadata map[string]any) {
	if s.audit == nil {
		return
	}

	var userID *string
	if actor != nil {
		userID = &actor.ID
	}

	if err := s.audit.Log(ctx, AuditEntry{
		UserID:   userID,
		Action:   action,
		Resource: resource,
		Result:   result,
		Metadata: metadata,
	}); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
