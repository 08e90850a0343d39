// Package main runs one snapshot cycle end to end.
// Executes: fetch → reconcile → apply → archive → export
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lotwatch/internal/config"
	"lotwatch/internal/events"
	"lotwatch/internal/export"
	"lotwatch/internal/logging"
	"lotwatch/internal/notify"
	"lotwatch/internal/orchestrator"
	"lotwatch/internal/scraper"
	"lotwatch/internal/storage"
	"lotwatch/internal/storage/clickhouse"
	"lotwatch/internal/storage/migrations"
	"lotwatch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	profile, err := config.LoadPreferenceProfile(cfg.Preferences.Profile)
	if err != nil {
		log.Error("load preference profile", "err", err)
		os.Exit(1)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Error("run postgres migrations", "err", err)
		os.Exit(1)
	}

	vehicleStore := postgres.NewVehicleHistoryStore(pool)
	equipmentStore := postgres.NewEquipmentHistoryStore(pool)
	scoreStore := postgres.NewScoreHistoryStore(pool)

	var archiveStore storage.SnapshotArchiveStore
	if cfg.Clickhouse.DSN != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			log.Error("connect clickhouse", "err", err)
			os.Exit(1)
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			log.Error("run clickhouse migrations", "err", err)
			os.Exit(1)
		}
		archiveStore = clickhouse.NewSnapshotArchiveStore(conn)
	}

	// Fetch the snapshot
	source := scraper.NewInventoryClient(cfg.Source.BaseURL)
	scrapedAt := time.Now().UTC()
	snapshot, err := source.FetchSnapshot(ctx)
	if err != nil {
		log.Error("fetch snapshot", "err", err)
		os.Exit(1)
	}
	log.Info("snapshot fetched", "vehicles", len(snapshot))

	// Reconcile against history
	orch := orchestrator.New(orchestrator.Options{
		VehicleStore:   vehicleStore,
		EquipmentStore: equipmentStore,
		ScoreStore:     scoreStore,
		ArchiveStore:   archiveStore,
		Profile:        profile,
		Verbose:        *verbose,
	})
	result, err := orch.Run(ctx, snapshot, scrapedAt)
	if err != nil {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}

	// Publish change events
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer publisher.Close()
		summary := events.RunSummaryEvent{
			Seen:    result.SnapshotCount,
			New:     result.New,
			Changed: result.Updated,
			Sold:    result.Sold,
			Skipped: result.Skipped,
			Errors:  len(result.Errors),
		}
		if err := publisher.PublishChanges(ctx, result.RunDate, result.Changes, summary); err != nil {
			log.Error("publish change events", "err", err)
		}
	}

	// Write exports
	if cfg.Export.Dir != "" {
		if err := writeExports(ctx, cfg.Export.Dir, vehicleStore, equipmentStore, scoreStore); err != nil {
			log.Error("write exports", "err", err)
		}
	}

	// Push the run summary webhook
	notifier := notify.New(cfg.Notify.WebhookURL, log)
	notifier.Push(ctx, notify.Summary{
		RunDate: result.RunDate.Format("2006-01-02"),
		Seen:    result.SnapshotCount,
		New:     result.New,
		Changed: result.Updated,
		Sold:    result.Sold,
		Skipped: result.Skipped,
		Errors:  len(result.Errors),
	})

	fmt.Printf("Run completed for %s:\n", result.RunDate.Format("2006-01-02"))
	fmt.Printf("  Seen: %d\n", result.SnapshotCount)
	fmt.Printf("  New: %d\n", result.New)
	fmt.Printf("  Updated: %d\n", result.Updated)
	fmt.Printf("  Unchanged: %d\n", result.Unchanged)
	fmt.Printf("  Sold: %d\n", result.Sold)
	fmt.Printf("  Skipped: %d\n", result.Skipped)
	fmt.Printf("  Archived: %d\n", result.ArchivedRows)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
		os.Exit(1)
	}
}

// writeExports renders the latest view CSV and the equipment summary JSON.
func writeExports(
	ctx context.Context,
	dir string,
	vehicleStore storage.VehicleHistoryStore,
	equipmentStore storage.EquipmentHistoryStore,
	scoreStore storage.ScoreHistoryStore,
) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	gen := export.NewGenerator(vehicleStore, equipmentStore, scoreStore)

	view, err := gen.LatestView(ctx)
	if err != nil {
		return fmt.Errorf("build latest view: %w", err)
	}
	csvPath := filepath.Join(dir, "inventory_latest.csv")
	if err := os.WriteFile(csvPath, []byte(export.RenderCSV(view)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	summary, err := gen.EquipmentSummary(ctx)
	if err != nil {
		return fmt.Errorf("build equipment summary: %w", err)
	}
	rendered, err := export.RenderEquipmentJSON(summary)
	if err != nil {
		return fmt.Errorf("render equipment summary: %w", err)
	}
	jsonPath := filepath.Join(dir, "equipment_summary.json")
	if err := os.WriteFile(jsonPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}

	return nil
}
