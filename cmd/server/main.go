/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the investment lifecycle engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load TOML configuration (flags win over file)
  3. Initialize SQLite store
  4. Build the engine service and accrual scheduler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML configuration file (default: config.toml, optional)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Stop the accrual scheduler
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/investments.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with a config file
  ./server -config=./config.toml

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
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

	"github.com/shopspring/decimal"

	"github.com/robertventures/investor-desk-engine/api"
	"github.com/robertventures/investor-desk-engine/config"
	"github.com/robertventures/investor-desk-engine/engine"
	"github.com/robertventures/investor-desk-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "config.toml", "TOML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	// Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Server.DB = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.Server.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Build the engine service
	svc := engine.NewService(store, engine.Params{
		MonthlyRate:  cfg.Engine.Rate(),
		NoticePeriod: cfg.Engine.NoticePeriod(),
		LockupMonths: map[engine.LockupPeriod]int{
			engine.LockupOneYear:   cfg.Engine.OneYearLockupMonths,
			engine.LockupThreeYear: cfg.Engine.ThreeYearLockupMonths,
		},
		MinimumInvestment:        decimal.NewFromInt(cfg.Engine.MinimumInvestment),
		AmountStep:               decimal.NewFromInt(cfg.Engine.AmountStep),
		AutoApproveDistributions: cfg.Engine.AutoApproveDistributions,
	}, nil, engine.AdminOnly{}, nil)

	// Initialize handler and scheduler
	handler := api.NewHandler(svc, store)

	scheduler := api.NewAccrualScheduler(svc, store)
	scheduler.CheckInterval = cfg.Server.Interval()
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Server.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
