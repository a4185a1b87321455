package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/filevault/filevault/internal/database/testutil"
	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/internal/permissions"
)

// withIdentity injects a pre-resolved identity, standing in for the
// Auth middleware.
func withIdentity(identity *models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity != nil {
			c.Set(CtxIdentityKey, identity)
			c.Set(CtxUserIDKey, identity.ID)
		}
		c.Next()
	}
}

func loadIdentity(t *testing.T, db *gorm.DB, userID string) *models.Identity {
	t.Helper()

	var user models.User
	require.NoError(t, db.Preload("OwnedFiles").Preload("Grants").First(&user, "id = ?", userID).Error)
	return models.NewIdentity(&user)
}

type adapterFixture struct {
	db     *gorm.DB
	engine *permissions.Engine

	owner    *models.User
	grantee  *models.User
	stranger *models.User
	admin    *models.User
	file     *models.File
}

func newAdapterFixture(t *testing.T) *adapterFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	engine, err := permissions.NewEngine(db)
	require.NoError(t, err)

	f := &adapterFixture{
		db:       db,
		engine:   engine,
		owner:    seedActiveUser(t, db, "owner@example.com", models.RoleUser),
		grantee:  seedActiveUser(t, db, "grantee@example.com", models.RoleUser),
		stranger: seedActiveUser(t, db, "stranger@example.com", models.RoleUser),
		admin:    seedActiveUser(t, db, "admin@example.com", models.RoleAdministrator),
	}

	f.file = &models.File{Name: "shared.txt", StorageKey: "shared-key", OwnerID: f.owner.ID}
	require.NoError(t, db.Create(f.file).Error)

	granted, err := engine.GrantPermission(context.Background(), loadIdentity(t, db, f.owner.ID), f.grantee.ID, f.file.ID, models.PermissionRead)
	require.NoError(t, err)
	require.True(t, granted)

	return f
}

func serve(router *gin.Engine, method, path string) int {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec.Code
}

// TestAdaptersAgree drives the same requests through the declarative
// and interception adapters and requires identical verdicts: both sit
// on the one decision function, so they must never diverge.
func TestAdaptersAgree(t *testing.T) {
	f := newAdapterFixture(t)

	cases := []struct {
		name       string
		userID     string
		method     string
		capability string
		wantCode   int
	}{
		{"owner reads", f.owner.ID, http.MethodGet, permissions.CapabilityView, http.StatusOK},
		{"owner deletes", f.owner.ID, http.MethodDelete, permissions.CapabilityDelete, http.StatusOK},
		{"grantee reads", f.grantee.ID, http.MethodGet, permissions.CapabilityView, http.StatusOK},
		{"grantee updates", f.grantee.ID, http.MethodPut, permissions.CapabilityUpdate, http.StatusForbidden},
		{"grantee deletes", f.grantee.ID, http.MethodDelete, permissions.CapabilityDelete, http.StatusForbidden},
		{"stranger reads", f.stranger.ID, http.MethodGet, permissions.CapabilityView, http.StatusForbidden},
		{"admin deletes", f.admin.ID, http.MethodDelete, permissions.CapabilityDelete, http.StatusOK},
	}

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identity := loadIdentity(t, f.db, tc.userID)

			declarative := gin.New()
			declarative.Handle(tc.method, "/files/:fileId", withIdentity(identity), RequireCapability(f.engine, tc.capability), ok)

			interception := gin.New()
			interception.Handle(tc.method, "/files/:fileId", withIdentity(identity), FileAccess(f.engine), ok)

			declCode := serve(declarative, tc.method, "/files/"+f.file.ID)
			intCode := serve(interception, tc.method, "/files/"+f.file.ID)

			assert.Equal(t, tc.wantCode, declCode, "declarative")
			assert.Equal(t, declCode, intCode, "adapters diverged")
		})
	}
}

func TestRequireCapabilityWithoutIdentity(t *testing.T) {
	f := newAdapterFixture(t)

	router := gin.New()
	router.GET("/files/:fileId", RequireCapability(f.engine, permissions.CapabilityView), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/files/"+f.file.ID))
}

func TestRequireCapabilityResourceless(t *testing.T) {
	f := newAdapterFixture(t)
	identity := loadIdentity(t, f.db, f.stranger.ID)

	router := gin.New()
	router.POST("/files", withIdentity(identity), RequireCapability(f.engine, permissions.CapabilityUpload), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	router.GET("/files", withIdentity(identity), RequireCapability(f.engine, permissions.CapabilityShare), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Upload is universally permitted without a file id; share is not.
	assert.Equal(t, http.StatusCreated, serve(router, http.MethodPost, "/files"))
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/files"))
}

func TestRequireCapabilityUnparsableFileID(t *testing.T) {
	f := newAdapterFixture(t)
	identity := loadIdentity(t, f.db, f.stranger.ID)

	router := gin.New()
	router.GET("/files/:fileId", withIdentity(identity), RequireCapability(f.engine, permissions.CapabilityView), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// A non-UUID id downgrades to the resource-less rule, which only
	// permits upload.
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/files/not-a-uuid"))
}

func TestFileAccessPassThroughWithoutFileID(t *testing.T) {
	f := newAdapterFixture(t)

	// No identity and no file id: the interception adapter defers
	// entirely to the rest of the chain.
	router := gin.New()
	router.GET("/files", FileAccess(f.engine), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/files"))
}

func TestFileAccessRequiresIdentityForFileRoutes(t *testing.T) {
	f := newAdapterFixture(t)

	router := gin.New()
	router.GET("/files/:fileId", FileAccess(f.engine), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/files/"+f.file.ID))
}
