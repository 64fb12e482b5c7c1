package main

import (
	"log"
	"os"

	"eeg-workload-be/internal/model"
	"eeg-workload-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect; DDL statements are worth seeing here
	opts := database.DefaultOptions()
	opts.Verbose = true
	db, err := database.Open(dsn, opts)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		`CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.Session{},
		&model.Prediction{},
		&model.FeatureVector{},
		&model.StreamSample{},
		&model.Event{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Hypertables & Indexes
	log.Println("Step 3: Creating Hypertables and Indexes...")

	postMigrationSQL := []string{
		`SELECT create_hypertable('predictions', 'timestamp', if_not_exists => TRUE, migrate_data => TRUE);`,
		`SELECT create_hypertable('stream_samples', 'timestamp', if_not_exists => TRUE, migrate_data => TRUE);`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_session_time ON predictions (session_id, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_user_time ON predictions (user_id, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_time ON events (session_id, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_open ON sessions (user_id) WHERE end_time IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_feature_vectors_band ON feature_vectors USING hnsw (band_vector vector_l2_ops);`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
