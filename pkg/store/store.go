package store

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shnefix/Code-Extractor/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when creating a user whose email is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Open connects to Postgres using dsn.
func Open(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables. Each model is migrated on its own so
// a failure on one does not block the others; failures are logged and the
// first one is returned.
func Migrate(db *gorm.DB) error {
	var first error
	for _, m := range []struct {
		name  string
		model any
	}{
		{"users", &models.User{}},
		{"extractions", &models.Extraction{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			log.Printf("migration warning (%s): %v", m.name, err)
			if first == nil {
				first = fmt.Errorf("migrate %s: %w", m.name, err)
			}
		}
	}
	return first
}

// isUniqueConstraintError covers drivers that do not translate duplicate keys.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint")
}
