package permissions

import "github.com/filevault/filevault/internal/models"

// Verdict is the outcome of a blanket role evaluation. The role
// authority never denies: a blanket miss only means "no automatic
// grant" and defers to ownership and ledger checks.
type Verdict int

const (
	// VerdictNone defers the decision to the caller.
	VerdictNone Verdict = iota
	// VerdictAllow grants access regardless of ledger state.
	VerdictAllow
)

// RoleAuthority evaluates whether an identity's roles grant blanket
// access, bypassing the per-file ledger entirely.
type RoleAuthority struct{}

// BlanketAccess applies the role ladder in order, first match wins:
//
//  1. administrator: every capability
//  2. file-manager: every file-scoped capability
//  3. otherwise: no verdict
func (RoleAuthority) BlanketAccess(identity *models.Identity, capability string) Verdict {
	if identity == nil {
		return VerdictNone
	}

	if identity.HasRole(models.RoleAdministrator) {
		return VerdictAllow
	}

	if identity.HasRole(models.RoleFileManager) && IsFileCapability(capability) {
		return VerdictAllow
	}

	return VerdictNone
}
