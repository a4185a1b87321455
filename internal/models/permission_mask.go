package models

import "strings"

// PermissionMask is a bitwise union of per-file capabilities.
type PermissionMask uint8

const (
	PermissionRead   PermissionMask = 1 << iota // 1
	PermissionWrite                             // 2
	PermissionDelete                            // 4
	PermissionShare                             // 8

	// PermissionFullControl is the union of all four capability bits.
	PermissionFullControl = PermissionRead | PermissionWrite | PermissionDelete | PermissionShare
)

// Has reports whether m holds every bit of required. A multi-bit
// requirement is satisfied only by holding all requested bits, not by
// merely overlapping them.
func (m PermissionMask) Has(required PermissionMask) bool {
	return m&required == required
}

// IsZero reports whether no capability bits remain. Zero-mask ledger
// entries are meaningless and must be deleted rather than retained.
func (m PermissionMask) IsZero() bool {
	return m == 0
}

// String renders the mask for logs and audit metadata.
func (m PermissionMask) String() string {
	if m.IsZero() {
		return "none"
	}
	if m == PermissionFullControl {
		return "full-control"
	}

	parts := make([]string, 0, 4)
	if m.Has(PermissionRead) {
		parts = append(parts, "read")
	}
	if m.Has(PermissionWrite) {
		parts = append(parts, "write")
	}
	if m.Has(PermissionDelete) {
		parts = append(parts, "delete")
	}
	if m.Has(PermissionShare) {
		parts = append(parts, "share")
	}
	return strings.Join(parts, "|")
}
