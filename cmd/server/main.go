/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the finance operation engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed the chart of accounts when empty
  4. Wire service, voucher issuer, and handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: finance.db)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
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

	"github.com/propflow/finance-engine/accounting"
	"github.com/propflow/finance-engine/api"
	"github.com/propflow/finance-engine/operation"
	"github.com/propflow/finance-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "finance.db", "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed the chart of accounts on first run
	if err := seedChartIfEmpty(store); err != nil {
		log.Fatalf("Failed to seed chart of accounts: %v", err)
	}

	// Wire dependencies
	issuer := accounting.NewIssuer(store)
	service := operation.NewService(store, store, issuer)
	handler := api.NewHandler(service, store, issuer, store)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Finance engine listening on http://localhost:%d/api", *port)
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

func seedChartIfEmpty(store *sqlite.Store) error {
	ctx := context.Background()

	existing, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	chart := accounting.DefaultChart()
	if err := accounting.ValidateChart(chart); err != nil {
		return err
	}
	log.Printf("Seeding chart of accounts (%d accounts)", len(chart))
	return store.SaveAccounts(ctx, chart)
}
