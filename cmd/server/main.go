package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalhunt/market/api"
	marketdb "github.com/signalhunt/market/db"
	"github.com/signalhunt/market/internal/config"
	"github.com/signalhunt/market/internal/db"
	"github.com/signalhunt/market/internal/extract"
	"github.com/signalhunt/market/internal/jobs"
	"github.com/signalhunt/market/internal/repository/sqlite"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting market server", "version", version, "buildTime", buildTime)

	ctx := context.Background()

	// Open database connection and apply migrations
	dbConn, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, dbConn, marketdb.Migrations, marketdb.SeedFiles); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	repo := sqlite.New(dbConn, logger)

	// Background extraction is best effort: if Ollama is unreachable the
	// server still serves the marketplace, just without profile extraction.
	var pool *jobs.WorkerPool
	client, err := ollama.NewClient(cfg.Ollama, nil)
	if err != nil {
		logger.Warn("ollama client unavailable, extraction disabled", "err", err)
	} else {
		engine, err := extract.NewEngine(ctx, client, cfg.EngineConfig, repo, repo, logger)
		if err != nil {
			logger.Warn("extraction engine unavailable, extraction disabled", "err", err)
		} else {
			handlers := map[string]jobs.Handler{
				jobs.TypeProfileChat: profileChatHandler(engine, repo, logger),
			}
			pool = jobs.NewWorkerPool(jobs.NewRepository(dbConn), handlers, logger, cfg.Workers)
			pool.Start(ctx)
		}
	}

	handler := api.SetupRoutes(cfg, version, buildTime, dbConn, pool, logger)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	if pool != nil {
		pool.Stop()
	}

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := dbConn.Close(); err != nil {
		logger.Error("closing DB", "err", err)
	}

	logger.Info("server exited")
}

// profileChatHandler runs one queued transcript through the extraction
// engine and merges the result into the profile.
func profileChatHandler(engine *extract.Engine, repo *sqlite.SQLiteRepo, logger *slog.Logger) jobs.Handler {
	return func(ctx context.Context, job *models.BackgroundJob) error {
		var payload jobs.ProfileChatPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}

		existing := ""
		if p, err := repo.GetProfile(ctx, payload.ProfileID); err == nil && p != nil {
			if b, err := json.Marshal(p.Metadata); err == nil {
				existing = string(b)
			}
		}

		ex, err := engine.ExtractProfile(ctx, payload.Role, payload.Transcript, existing)
		if err != nil {
			return err
		}

		_, err = extract.ApplyExtraction(ctx, repo, payload.ProfileID, ex, logger)
		return err
	}
}
