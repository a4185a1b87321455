package models

import "gorm.io/datatypes"

// File is the metadata record for a stored object. The bytes themselves
// live in the content store under StorageKey; this row carries ownership
// attribution and the soft-delete flag. Deletion never removes the row
// or its ledger entries, it only flips IsDeleted, which excludes the
// file from discovery and accessibility queries.
type File struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`

	// StorageKey is the opaque content-store identifier.
	StorageKey string `gorm:"uniqueIndex;not null" json:"-"`

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	IsDeleted bool `gorm:"default:false;index" json:"is_deleted"`

	Metadata datatypes.JSONMap `json:"metadata"`

	Permissions []FilePermission `gorm:"foreignKey:FileID" json:"-"`
}
