package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shnefix/Code-Extractor/pkg/config"
	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"
	"github.com/shnefix/Code-Extractor/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// `code-extractor migrate` runs migrations and seeding, then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if _, err := initDB(ctx, cfg, true); err != nil {
			log.Fatalf("db: %v", err)
		}
		fmt.Println("migration and seeding completed")
		return
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	rec, err := ocr.New(ctx, cfg.OCR())
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}
	m := newMetrics()
	rec = m.instrument(cfg.OCRProvider, rec)
	defer ocr.Close(rec)

	s := &server{
		pipeline: extract.NewPipeline(rec,
			extract.WithTimeout(cfg.OCRTimeout),
			extract.WithVerbose(cfg.Verbose),
		),
		metrics:       m,
		maxImageBytes: cfg.MaxImageBytes,
		authEnabled:   cfg.AuthEnabled,
		jwtSecret:     []byte(cfg.JWTSecret),
		tokenTTL:      cfg.TokenTTL,
	}
	if cfg.DBDSN != "" {
		db, err := initDB(ctx, cfg, false)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		s.history = store.NewHistory(db)
		s.users = store.NewUsers(db)
	} else {
		log.Printf("DB_DSN not set: extraction history disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(s, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (ocr provider %s)", srv.Addr, cfg.OCRProvider)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
