package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/filevault/filevault/internal/models"
)

func newTestUser() *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		Email:     "alice@example.com",
		FullName:  "Alice Example",
		Roles:     datatypes.JSONSlice[string]{models.RoleUser},
	}
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}

func TestGenerateAndVerifyRoundTrip(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "filevault"})
	require.NoError(t, err)

	user := newTestUser()
	token, expiresAt, err := svc.Generate(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(MaxAccessTokenTTL), expiresAt, time.Minute)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, "filevault", claims.Issuer)
	require.Equal(t, []string{models.RoleUser}, claims.Roles)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "secret-a"})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "secret-b"})
	require.NoError(t, err)

	token, _, err := issuer.Generate(newTestUser())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "s", Issuer: "someone-else"})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "s", Issuer: "filevault"})
	require.NoError(t, err)

	token, _, err := issuer.Generate(newTestUser())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestTTLIsCappedAtTwentyFourHours(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "s",
		AccessTokenTTL: 72 * time.Hour,
		Clock:          func() time.Time { return base },
	})
	require.NoError(t, err)

	_, expiresAt, err := svc.Generate(newTestUser())
	require.NoError(t, err)
	require.Equal(t, base.Add(MaxAccessTokenTTL), expiresAt)
}

func TestVerifyRejectsExpiredTokenWithoutLeeway(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued

	svc, err := NewJWTService(JWTConfig{
		Secret:         "s",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return now },
	})
	require.NoError(t, err)

	token, _, err := svc.Generate(newTestUser())
	require.NoError(t, err)

	// One second past expiry is already invalid; no clock-skew leeway.
	now = issued.Add(time.Hour + time.Second)
	_, err = svc.Verify(token)
	require.Error(t, err)

	now = issued.Add(30 * time.Minute)
	_, err = svc.Verify(token)
	require.NoError(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Verify(token)
		require.Error(t, err, "token %q", token)
	}
}
