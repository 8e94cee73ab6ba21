package main

import (
	"context"
	"log"

	"github.com/shnefix/Code-Extractor/pkg/config"
	"github.com/shnefix/Code-Extractor/pkg/store"

	"gorm.io/gorm"
)

// initDB connects to Postgres, runs migrations when DB_AUTO_MIGRATE is set and
// seeds the users named in SEED_USERS.
func initDB(ctx context.Context, cfg *config.Config, forceMigrate bool) (*gorm.DB, error) {
	db, err := store.Open(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate || forceMigrate {
		if err := store.Migrate(db); err != nil {
			log.Printf("warning: %v", err)
		}
	}
	seedUsers(ctx, store.NewUsers(db), cfg.SeedUsers)
	return db, nil
}

func seedUsers(ctx context.Context, users *store.Users, seeds []config.UserSeed) {
	for _, u := range seeds {
		created, err := users.Ensure(ctx, u.Email, u.Password)
		switch {
		case err != nil:
			log.Printf("seed user %s failed: %v", u.Email, err)
		case created:
			log.Printf("seeded user %s", u.Email)
		}
	}
}
