// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command snapshots inspects and seeds the snapshot tables the API server reads.
// Usage:
//
//	go run cmd/dev/snapshots/main.go --list
//	go run cmd/dev/snapshots/main.go --service shop-web
//	go run cmd/dev/snapshots/main.go --service shop-web --import-logs logs.json --import-records records.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/noldarim/opsdash/internal/config"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
	"github.com/noldarim/opsdash/internal/store"
)

func main() {
	list := flag.Bool("list", false, "List services with stored snapshots")
	serviceID := flag.String("service", "", "Service to show or seed")
	importLogs := flag.String("import-logs", "", "JSON array of log entries to append for --service")
	importRecords := flag.String("import-records", "", "JSON array of step records to append for --service")
	configFile := flag.String("config", "", "Config file path")

	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to migrate database: %v\n", err)
		os.Exit(1)
	}

	if *list {
		listServices(ctx, db)
		return
	}

	if *serviceID == "" {
		fmt.Fprintln(os.Stderr, "--service is required unless --list is given")
		os.Exit(2)
	}

	if *importLogs != "" {
		var logs []types.LogEntry
		mustReadJSON(*importLogs, &logs)
		if err := db.AppendLogEntries(ctx, *serviceID, logs); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to import log entries: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d log entries for %s\n", len(logs), *serviceID)
	}
	if *importRecords != "" {
		var records []types.PipelineStepRecord
		mustReadJSON(*importRecords, &records)
		if err := db.AppendStepRecords(ctx, *serviceID, records); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to import step records: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d step records for %s\n", len(records), *serviceID)
	}

	showService(ctx, db, *serviceID)
}

func listServices(ctx context.Context, db *store.GormStore) {
	services, err := db.Services(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list services: %v\n", err)
		os.Exit(1)
	}
	if len(services) == 0 {
		fmt.Println("No snapshots stored.")
		return
	}
	for _, id := range services {
		fmt.Println(id)
	}
}

func showService(ctx context.Context, db *store.GormStore, serviceID string) {
	logs, err := db.LogEntries(ctx, serviceID)
	if err != nil {
		fmt.Printf("Log entries: %v\n", err)
	} else {
		fmt.Printf("=== %d log entries ===\n", len(logs))
		for _, e := range logs {
			fmt.Printf("  [%s] exit=%d %s\n", e.Timestamp, e.ExitCode, e.Command)
		}
	}

	records, err := db.StepRecords(ctx, serviceID)
	if err != nil {
		fmt.Printf("Step records: %v\n", err)
		return
	}
	fmt.Printf("=== %d step records ===\n", len(records))
	for _, r := range records {
		fmt.Printf("  #%d %-24s %-12s started=%s\n", r.ID, r.StepName, r.Status, r.StartedAt)
	}
}

func mustReadJSON(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	if err := json.Unmarshal(data, v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse %s: %v\n", path, err)
		os.Exit(1)
	}
}
