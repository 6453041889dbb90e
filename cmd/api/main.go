package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bioscan/internal/config"
	database "bioscan/internal/db"
	"bioscan/internal/inference"
	"bioscan/internal/storage"

	apiserver "bioscan/internal/api/server"
	"bioscan/internal/api/handlers"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting BioScan API Server...")

	// 1. Setup Configuration
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 2. Initialize Infrastructure
	db := database.New(cfg)

	// 3. Run Database Migrations + seed a reviewer account
	db.AutoMigrate()
	database.SeedDoctorUser(db.DB, cfg.Auth.SeedDoctorEmail, cfg.Auth.SeedDoctorPassword)

	// 4. Storage
	store := storage.New(cfg)

	// 5. Load the classifier once; it is shared by every request.
	classifier, err := inference.NewEngine(cfg)
	if err != nil {
		log.Fatalf("❌ Classifier init failed: %v", err)
	}

	// 6. Setup Metrics
	handlers.RegisterMetrics()
	go func() {
		http.Handle("/_metrics", promhttp.Handler())
		log.Printf("📊 Metrics exposed at http://localhost%s/_metrics", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(cfg.Server.MetricsPort, nil); err != nil {
			log.Printf("⚠️ Metrics server error: %v", err)
		}
	}()

	// 7. Start Server
	srv := apiserver.New(cfg, db, store, classifier, logger)

	log.Printf("🚀 API Server starting on %s", cfg.Server.HTTPAddr)
	if err := srv.Start(cfg.Server.HTTPAddr); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
