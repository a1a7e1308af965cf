package database

import (
	"errors"
	"fmt"
	"strings"

	"leads-organizer-backend/models"

	"gorm.io/gorm"
)

// Migrate creates the tables on first start and adds missing columns and
// indexes afterwards. It never drops anything.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Lead{},
		&models.Delivery{},
		&models.User{},
		&models.IdempotencyKey{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// SeedOperator makes sure an operator with email exists so the admin listing
// is reachable on a fresh install. An existing operator keeps its password.
func SeedOperator(db *gorm.DB, email, password string) (created bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}

	var existing models.User
	err = db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup operator: %w", err)
	}

	user := models.User{FirstName: "Admin", Email: email}
	if err := user.SetPassword(password); err != nil {
		return false, fmt.Errorf("hash operator password: %w", err)
	}
	if err := db.Create(&user).Error; err != nil {
		return false, fmt.Errorf("create operator: %w", err)
	}
	return true, nil
}
