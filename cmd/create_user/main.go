package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/shnefix/Code-Extractor/pkg/config"
	"github.com/shnefix/Code-Extractor/pkg/store"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_user <email> <password>")
		os.Exit(2)
	}
	email := os.Args[1]
	password := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := store.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		log.Printf("warning: %v", err)
	}

	user, err := store.NewUsers(db).Create(context.Background(), email, password)
	if errors.Is(err, store.ErrUserExists) {
		fmt.Printf("user %s already exists\n", store.NormalizeEmail(email))
		return
	}
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d\n", user.Email, user.ID)
}
