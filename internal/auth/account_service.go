package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/internal/services"
	"github.com/filevault/filevault/pkg/crypto"
	apperrors "github.com/filevault/filevault/pkg/errors"
	"github.com/filevault/filevault/pkg/logger"
	"github.com/filevault/filevault/pkg/metrics"
)

// ErrEmailTaken indicates a registration against an existing address.
var ErrEmailTaken = apperrors.New("EMAIL_EXISTS", "Email already exists", http.StatusBadRequest)

// RegisterInput describes the fields accepted when registering.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
}

// LoginInput carries login credentials plus client attribution for audit.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AccountService handles registration and credential login.
type AccountService struct {
	db    *gorm.DB
	jwt   *JWTService
	audit *services.AuditService
	clock func() time.Time
	log   *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, jwtService *JWTService, audit *services.AuditService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("account service: jwt service is required")
	}

	return &AccountService{
		db:    db,
		jwt:   jwtService,
		audit: audit,
		clock: time.Now,
		log:   logger.WithModule("account"),
	}, nil
}

// Register provisions a new account with the base role and issues a token.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		FullName: strings.TrimSpace(input.FullName),
		Password: hashed,
		IsActive: true,
		Roles:    datatypes.JSONSlice[string]{models.RoleUser},
	}

	// The unique index on email is the only duplicate check: a
	// pre-insert lookup would still race with a concurrent registration.
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateEmail(err) {
			s.recordAudit(ctx, nil, "auth.register", "failure", map[string]any{"reason": "email_exists"})
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("account service: create user: %w", err)
	}

	s.recordAudit(ctx, &user.ID, "auth.register", "success", nil)

	return s.issue(user)
}

// Login verifies credentials, stamps the login time, and issues a token.
// Every failure mode collapses into the same invalid-credentials error.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.failLogin(ctx, nil, input.IPAddress)
		}
		return nil, fmt.Errorf("account service: load user: %w", err)
	}

	if !user.IsActive || !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, s.failLogin(ctx, &user.ID, input.IPAddress)
	}

	now := s.clock().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("account service: stamp login: %w", err)
	}
	user.LastLoginAt = &now

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.recordAudit(ctx, &user.ID, "auth.login", "success", map[string]any{"ip": input.IPAddress})

	return s.issue(&user)
}

func isDuplicateEmail(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func (s *AccountService) failLogin(ctx context.Context, userID *string, ip string) error {
	metrics.AuthAttempts.WithLabelValues("failure").Inc()
	s.recordAudit(ctx, userID, "auth.login", "failure", map[string]any{"ip": ip})
	return apperrors.ErrInvalidCredentials
}

func (s *AccountService) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("account service: issue token: %w", err)
	}

	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AccountService) recordAudit(ctx context.Context, userID *string, action, result string, metadata map[string]any) {
	if s.audit == nil {
		return
	}

	if err := s.audit.Log(ctx, services.AuditEntry{
		UserID:   userID,
		Action:   action,
		Result:   result,
		Metadata: metadata,
	}); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
