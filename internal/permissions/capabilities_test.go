package permissions

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filevault/filevault/internal/models"
)

func TestMaskFor(t *testing.T) {
	cases := []struct {
		capability string
		mask       models.PermissionMask
	}{
		{CapabilityView, models.PermissionRead},
		{CapabilityDownload, models.PermissionRead},
		{CapabilityUpdate, models.PermissionWrite},
		{CapabilityDelete, models.PermissionDelete},
		{CapabilityShare, models.PermissionShare},
	}

	for _, tc := range cases {
		mask, ok := MaskFor(tc.capability)
		require.True(t, ok, tc.capability)
		assert.Equal(t, tc.mask, mask, tc.capability)
	}

	// Upload needs no pre-existing grant, so it has no mask entry.
	_, ok := MaskFor(CapabilityUpload)
	assert.False(t, ok)

	_, ok = MaskFor("session.connect")
	assert.False(t, ok)
}

func TestIsFileCapability(t *testing.T) {
	assert.True(t, IsFileCapability(CapabilityView))
	assert.True(t, IsFileCapability(CapabilityShare))
	assert.False(t, IsFileCapability("user.manage"))
}

func TestCapabilityForMethod(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:    CapabilityView,
		http.MethodHead:   CapabilityView,
		http.MethodPost:   CapabilityUpdate,
		http.MethodPut:    CapabilityUpdate,
		http.MethodPatch:  CapabilityUpdate,
		http.MethodDelete: CapabilityDelete,
		"TRACE":           CapabilityView,
		"get":             CapabilityView,
	}

	for method, capability := range cases {
		assert.Equal(t, capability, CapabilityForMethod(method), method)
	}
}
