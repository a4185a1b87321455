package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filevault/filevault/internal/models"
)

func identityWithRoles(roles ...string) *models.Identity {
	user := &models.User{BaseModel: models.BaseModel{ID: "user-1"}}
	user.Roles = append(user.Roles, roles...)
	return models.NewIdentity(user)
}

func TestBlanketAccessAdministrator(t *testing.T) {
	var authority RoleAuthority
	admin := identityWithRoles(models.RoleAdministrator)

	for _, capability := range []string{CapabilityView, CapabilityDelete, CapabilityShare, "user.manage"} {
		assert.Equal(t, VerdictAllow, authority.BlanketAccess(admin, capability), capability)
	}
}

func TestBlanketAccessFileManager(t *testing.T) {
	var authority RoleAuthority
	manager := identityWithRoles(models.RoleFileManager)

	assert.Equal(t, VerdictAllow, authority.BlanketAccess(manager, CapabilityView))
	assert.Equal(t, VerdictAllow, authority.BlanketAccess(manager, CapabilityDelete))
	assert.Equal(t, VerdictNone, authority.BlanketAccess(manager, "user.manage"))
}

func TestBlanketAccessNeverDenies(t *testing.T) {
	var authority RoleAuthority

	// A miss defers; it must never be interpreted as a denial.
	assert.Equal(t, VerdictNone, authority.BlanketAccess(identityWithRoles(models.RoleUser), CapabilityView))
	assert.Equal(t, VerdictNone, authority.BlanketAccess(nil, CapabilityView))
}
