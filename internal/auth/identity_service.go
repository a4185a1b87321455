package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/pkg/logger"
)

// IdentityService resolves bearer tokens into per-request identities.
type IdentityService struct {
	db  *gorm.DB
	jwt *JWTService
	log *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(db *gorm.DB, jwtService *JWTService) (*IdentityService, error) {
	if db == nil {
		return nil, errors.New("identity service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("identity service: jwt service is required")
	}

	return &IdentityService{
		db:  db,
		jwt: jwtService,
		log: logger.WithModule("identity"),
	}, nil
}

// Resolve turns a bearer token into an Identity, or nil. Malformed
// tokens, bad signatures, unknown subjects, and inactive users all
// yield nil rather than an error, so callers cannot distinguish the
// causes. Roles, ownership, and ledger grants are loaded fresh from the
// database on every call; the token's claims only locate the user and
// are never trusted for authorization state.
func (s *IdentityService) Resolve(ctx context.Context, token string) *models.Identity {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	claims, err := s.jwt.Verify(token)
	if err != nil {
		s.log.Debug("token rejected", zap.Error(err))
		return nil
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		s.log.Debug("token subject is not a uuid", zap.String("subject", claims.Subject))
		return nil
	}

	var user models.User
	err = s.db.WithContext(ctx).
		Preload("OwnedFiles").
		Preload("Grants").
		First(&user, "id = ? AND is_active = ?", userID.String(), true).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error("load user for token", zap.Error(err))
		}
		return nil
	}

	return models.NewIdentity(&user)
}

// Verify performs a lightweight signature and expiry check without a
// user lookup.
func (s *IdentityService) Verify(token string) bool {
	_, err := s.jwt.Verify(strings.TrimSpace(token))
	return err == nil
}
