// orphanscan sweeps all students and submits a removal workflow for every
// student whose support team has no active members. Run it on a schedule;
// each run is independent and idempotent on the workflow side.
package main

import (
	"context"
	"log"

	"classtrack-sync/backend/internal/config"
	"classtrack-sync/backend/internal/db"
	"classtrack-sync/backend/internal/scanner"
	"classtrack-sync/backend/internal/security"
	studentrepo "classtrack-sync/backend/internal/student/repository"
	teamrepo "classtrack-sync/backend/internal/team/repository"
	"classtrack-sync/backend/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.WorkflowURL == "" {
		log.Fatal("orphanscan: WORKFLOW_URL is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	tokens, err := security.NewServiceTokenProvider(cfg.ServiceTokenSecret, "classtrack-orphan-scanner", cfg.ServiceTokenLifetime())
	if err != nil {
		log.Fatalf("service tokens: %v", err)
	}
	workflows, err := workflow.NewClient(cfg.WorkflowURL, tokens)
	if err != nil {
		log.Fatalf("workflow client: %v", err)
	}

	students := studentrepo.NewPostgresRepository(database)
	teams := teamrepo.NewPostgresRepository(database)
	scan := scanner.NewScanner(students, teams, workflows, cfg.ScanPageSize)

	submitted, err := scan.Run(context.Background())
	if err != nil {
		log.Fatalf("orphanscan: failed after %d submissions: %v", submitted, err)
	}
	log.Printf("orphanscan: done, %d removal workflows submitted", submitted)
}
