package main

import (
	"context"
	"log"

	"ragchat-be/internal/bootstrap"
	"ragchat-be/internal/config"
	"ragchat-be/internal/server"
	"ragchat-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Logger.Sync()

	// 4. Start Background Services
	if err := container.Worker.Start(); err != nil {
		log.Fatalf("Failed to start ingestion worker: %v", err)
	}

	// Jobs that were accepted but never published survive a crash as queued
	// rows; push them back onto the queue before serving traffic.
	if err := container.Enqueuer.RequeuePending(context.Background()); err != nil {
		log.Printf("Warn: failed to requeue pending jobs: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
