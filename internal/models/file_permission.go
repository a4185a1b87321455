package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FilePermission is a single ledger entry: the capabilities a user has
// been explicitly granted on one file. At most one row exists per
// (user, file) pair; grants merge into Mask with bitwise OR and revokes
// clear bits with AND-NOT, deleting the row once the mask reaches zero.
type FilePermission struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_file" json:"user_id"`
	FileID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_file" json:"file_id"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	File *File `gorm:"foreignKey:FileID" json:"-"`

	Mask PermissionMask `gorm:"not null" json:"mask"`

	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// TableName overrides the default table name for GORM.
func (FilePermission) TableName() string {
	return "file_permissions"
}

func (p *FilePermission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
