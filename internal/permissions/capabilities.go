package permissions

import (
	"net/http"
	"strings"

	"github.com/filevault/filevault/internal/models"
)

// Capability names are stable lowercase dotted strings shared by both
// enforcement adapters.
const (
	CapabilityView     = "file.view"
	CapabilityDownload = "file.download"
	CapabilityUpload   = "file.upload"
	CapabilityUpdate   = "file.update"
	CapabilityDelete   = "file.delete"
	CapabilityShare    = "file.share"
)

// capabilityMasks is the single capability-to-bitmask table. Upload is
// absent by design: creating a new file needs no pre-existing grant.
var capabilityMasks = map[string]models.PermissionMask{
	CapabilityView:     models.PermissionRead,
	CapabilityDownload: models.PermissionRead,
	CapabilityUpdate:   models.PermissionWrite,
	CapabilityDelete:   models.PermissionDelete,
	CapabilityShare:    models.PermissionShare,
}

// MaskFor returns the ledger bits required by a capability. The second
// return is false for unknown capabilities and for CapabilityUpload.
func MaskFor(capability string) (models.PermissionMask, bool) {
	mask, ok := capabilityMasks[capability]
	return mask, ok
}

// IsFileCapability reports whether the capability is scoped to file
// operations, the domain the file-manager role blankets.
func IsFileCapability(capability string) bool {
	return strings.HasPrefix(capability, "file.")
}

// CapabilityForMethod derives the enforced capability from an HTTP
// method. Read-class methods map to view, write-class to update,
// delete-class to delete; anything unrecognised conservatively requires
// read access. The interception adapter uses this so that both
// enforcement points consult the same capability table.
func CapabilityForMethod(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return CapabilityView
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return CapabilityUpdate
	case http.MethodDelete:
		return CapabilityDelete
	default:
		return CapabilityView
	}
}
