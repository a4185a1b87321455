package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/filevault/filevault/internal/database/testutil"
	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/internal/services"
	apperrors "github.com/filevault/filevault/pkg/errors"
)

func newAccountFixture(t *testing.T) (*gorm.DB, *AccountService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "filevault"})
	require.NoError(t, err)

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	accountSvc, err := NewAccountService(db, jwtSvc, auditSvc)
	require.NoError(t, err)
	return db, accountSvc
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	db, accounts := newAccountFixture(t)

	result, err := accounts.Register(context.Background(), RegisterInput{
		Email:    "Bob@Example.com",
		FullName: "Bob Builder",
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, "bob@example.com", result.User.Email)
	require.Equal(t, []string{models.RoleUser}, []string(result.User.Roles))

	var stored models.User
	require.NoError(t, db.First(&stored, "email = ?", "bob@example.com").Error)
	require.NotEqual(t, "hunter22", stored.Password)

	login, err := accounts.Login(context.Background(), LoginInput{Email: "bob@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)
	require.NotNil(t, login.User.LastLoginAt)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	_, accounts := newAccountFixture(t)

	_, err := accounts.Register(context.Background(), RegisterInput{Email: "dup@example.com", Password: "pw123456"})
	require.NoError(t, err)

	_, err = accounts.Register(context.Background(), RegisterInput{Email: "DUP@example.com", Password: "other123"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestIsDuplicateEmailRecognisesDriverErrors(t *testing.T) {
	require.True(t, isDuplicateEmail(gorm.ErrDuplicatedKey))
	require.True(t, isDuplicateEmail(errors.New("UNIQUE constraint failed: users.email")))
	require.False(t, isDuplicateEmail(errors.New("database is locked")))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	db, accounts := newAccountFixture(t)

	_, err := accounts.Register(context.Background(), RegisterInput{Email: "carol@example.com", Password: "pw123456"})
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := accounts.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "pw123456"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := accounts.Login(context.Background(), LoginInput{Email: "carol@example.com", Password: "wrong"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).Where("email = ?", "carol@example.com").Update("is_active", false).Error)
		_, err := accounts.Login(context.Background(), LoginInput{Email: "carol@example.com", Password: "pw123456"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}

func TestRegisterValidatesInput(t *testing.T) {
	_, accounts := newAccountFixture(t)

	_, err := accounts.Register(context.Background(), RegisterInput{Email: "", Password: "pw123456"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))

	_, err = accounts.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "  "})
	require.Error(t, err)
}
