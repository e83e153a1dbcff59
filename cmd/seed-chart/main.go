/*
main.go - Chart of accounts seed script

PURPOSE:
  Validates and loads the default property-management chart of accounts
  into a database. Safe to re-run: the chart is replaced atomically.

USAGE:
  ./seed-chart -db=./data/finance.db
*/
package main

import (
	"context"
	"flag"
	"log"

	"github.com/propflow/finance-engine/accounting"
	"github.com/propflow/finance-engine/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "finance.db", "SQLite database path")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	chart := accounting.DefaultChart()
	if err := accounting.ValidateChart(chart); err != nil {
		log.Fatalf("Seed chart is invalid: %v", err)
	}

	if err := store.SaveAccounts(context.Background(), chart); err != nil {
		log.Fatalf("Failed to save chart: %v", err)
	}

	log.Printf("Seeded %d accounts into %s", len(chart), *dbPath)
}
