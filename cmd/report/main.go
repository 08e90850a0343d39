// Package main regenerates the inventory exports from stored history
// without running a snapshot cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"lotwatch/internal/config"
	"lotwatch/internal/export"
	"lotwatch/internal/logging"
	"lotwatch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	outputDir := flag.String("output-dir", "", "Output directory (overrides export.dir)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.Logger)

	dir := cfg.Export.Dir
	if *outputDir != "" {
		dir = *outputDir
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "No output directory: set export.dir or pass -output-dir")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	gen := export.NewGenerator(
		postgres.NewVehicleHistoryStore(pool),
		postgres.NewEquipmentHistoryStore(pool),
		postgres.NewScoreHistoryStore(pool),
	)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("create output dir", "err", err)
		os.Exit(1)
	}

	view, err := gen.LatestView(ctx)
	if err != nil {
		log.Error("build latest view", "err", err)
		os.Exit(1)
	}
	csvPath := filepath.Join(dir, "inventory_latest.csv")
	if err := os.WriteFile(csvPath, []byte(export.RenderCSV(view)), 0o644); err != nil {
		log.Error("write csv", "path", csvPath, "err", err)
		os.Exit(1)
	}

	summary, err := gen.EquipmentSummary(ctx)
	if err != nil {
		log.Error("build equipment summary", "err", err)
		os.Exit(1)
	}
	rendered, err := export.RenderEquipmentJSON(summary)
	if err != nil {
		log.Error("render equipment summary", "err", err)
		os.Exit(1)
	}
	jsonPath := filepath.Join(dir, "equipment_summary.json")
	if err := os.WriteFile(jsonPath, []byte(rendered), 0o644); err != nil {
		log.Error("write json", "path", jsonPath, "err", err)
		os.Exit(1)
	}

	fmt.Println("Reports generated:")
	fmt.Printf("  - %s (%d vehicles)\n", csvPath, len(view.Rows))
	fmt.Printf("  - %s (%d categories)\n", jsonPath, len(summary.Categories))
}
