/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Projection Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and the config file
  2. Build the logger
  3. Initialize the store (SQLite or in-memory)
  4. Create API handler with engine defaults
  5. Start the refresh scheduler (if enabled)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (optional)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database
  -store   Store driver, "sqlite" or "memory", overrides config

ENVIRONMENT:
  Every config key can be set as PLAN_<SECTION>_<KEY>, for example
  PLAN_SERVER_PORT, PLAN_DB_DRIVER, PLAN_DB_PATH, PLAN_ENGINE_TAX_RATE,
  PLAN_SCHEDULER_ENABLED.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for a running refresh)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/plans.db"

  # Run with in-memory database and nightly refresh
  PLAN_SCHEDULER_ENABLED=true ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Settings and defaults
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/projection-engine/api"
	"github.com/warp/projection-engine/config"
	"github.com/warp/projection-engine/generic"
	"github.com/warp/projection-engine/generic/store"
	"github.com/warp/projection-engine/logging"
	"github.com/warp/projection-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	driver := flag.String("store", "", "store driver: sqlite or memory (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if *driver != "" {
		cfg.DB.Driver = *driver
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize store
	planStore, err := openStore(cfg.DB)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("driver", cfg.DB.Driver), zap.String("path", cfg.DB.Path), zap.Error(err))
	}
	defer planStore.Close()

	// Initialize handler
	handler := api.NewHandler(planStore, logger.Named("api"))
	handler.Defaults = api.Defaults{
		HorizonMonths: cfg.Engine.HorizonMonths,
		TaxRate:       generic.Dec(cfg.Engine.TaxRate),
	}

	scheduler := api.NewRefreshScheduler(handler, cfg.Scheduler.Spec, logger.Named("scheduler"))
	scheduler.Enabled = cfg.Scheduler.Enabled
	if err := scheduler.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.CORS.AllowedOrigins...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("store", cfg.DB.Driver),
			zap.String("db", cfg.DB.Path),
			zap.Bool("scheduler", cfg.Scheduler.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

func openStore(cfg config.DBConfig) (generic.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite":
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
