package database

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/filevault/filevault/internal/models"
	"github.com/filevault/filevault/pkg/crypto"
)

// DefaultAdminEmail is the bootstrap administrator account created when
// no administrator exists yet.
const DefaultAdminEmail = "admin@filevault.local"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.FilePermission{},
		&models.AuditLog{},
	)
}

// SeedAdmin ensures at least one administrator account exists. When one
// has to be created, the generated password is returned exactly once so
// the caller can log it; an empty string means nothing was seeded.
func SeedAdmin(db *gorm.DB) (string, error) {
	var count int64
	if err := db.Model(&models.User{}).
		Where("roles LIKE ?", "%"+models.RoleAdministrator+"%").
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("count administrators: %w", err)
	}
	if count > 0 {
		return "", nil
	}

	password, err := crypto.GenerateKey(18)
	if err != nil {
		return "", fmt.Errorf("generate admin password: %w", err)
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Email:    DefaultAdminEmail,
		FullName: "Administrator",
		Password: hashed,
		IsActive: true,
		Roles:    datatypes.JSONSlice[string]{models.RoleAdministrator},
	}
	if err := db.Create(admin).Error; err != nil {
		return "", fmt.Errorf("create admin: %w", err)
	}

	return password, nil
}
