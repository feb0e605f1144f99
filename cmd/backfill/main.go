// backfill rebuilds the student mirror from the primary records. Run it after
// restoring the blob store or changing the mirror document shape; it is safe
// to run while the worker is consuming live traffic.
package main

import (
	"context"
	"log"

	"classtrack-sync/backend/internal/backfill"
	"classtrack-sync/backend/internal/config"
	"classtrack-sync/backend/internal/db"
	"classtrack-sync/backend/internal/mirror"
	studentfanout "classtrack-sync/backend/internal/student/fanout"
	studentrepo "classtrack-sync/backend/internal/student/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.MirrorEndpoint == "" {
		log.Fatal("backfill: MIRROR_ENDPOINT is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	store, err := mirror.NewMinioStore(cfg.MirrorEndpoint, cfg.MirrorAccessKey, cfg.MirrorSecretKey, cfg.MirrorBucket, cfg.MirrorUseSSL)
	if err != nil {
		log.Fatalf("mirror: %v", err)
	}

	students := studentrepo.NewPostgresRepository(database)
	// Synthetic creations only rewrite the mirror; the app projections are
	// never touched, so no app repository is wired.
	handler := studentfanout.NewHandler(nil, store)
	driver := backfill.NewDriver(students, handler, cfg.ScanPageSize)

	processed, err := driver.Run(context.Background())
	if err != nil {
		log.Fatalf("backfill: failed after %d records: %v", processed, err)
	}
	log.Printf("backfill: done, %d records mirrored", processed)
}
