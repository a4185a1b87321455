package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role tags understood by the role authority.
const (
	RoleAdministrator = "administrator"
	RoleFileManager   = "file-manager"
	RoleUser          = "user"
)

// User describes an account holder. Email lookups are case-insensitive:
// addresses are normalised to lower case before persisting.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	FullName string `json:"full_name"`
	Password string `gorm:"not null" json:"-"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Roles always contains at least one tag; new accounts default to RoleUser.
	Roles datatypes.JSONSlice[string] `json:"roles"`

	OwnedFiles []File           `gorm:"foreignKey:OwnerID" json:"-"`
	Grants     []FilePermission `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
}

// HasRole reports whether the user carries the given role tag.
func (u *User) HasRole(role string) bool {
	for _, tag := range u.Roles {
		if tag == role {
			return true
		}
	}
	return false
}
