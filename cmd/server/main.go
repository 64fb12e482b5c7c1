package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"eeg-workload-be/internal/bootstrap"
	"eeg-workload-be/internal/config"
	"eeg-workload-be/internal/server"
	"eeg-workload-be/internal/tracer"
	"eeg-workload-be/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize Database
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		opts := database.DefaultOptions()
		opts.MaxOpenConns = cfg.Database.MaxOpenConns
		opts.Verbose = cfg.Database.LogSQL
		gormDB, err = database.Open(cfg.Database.Connection, opts)
		if err != nil {
			log.Fatalf("Unable to connect to GORM DB: %v", err)
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Unable to build application: %v", err)
	}

	// 4. Start Background Services
	container.Persistence.Start()
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Unable to start workload consumer: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(ctx, cfg, container)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownWindow)
		defer cancel()

		// Close producers first so their last frames reach the batch writer.
		if err := container.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}
