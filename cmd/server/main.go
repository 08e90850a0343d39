// Package main runs the long-lived service: the HTTP API plus the daily
// snapshot scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lotwatch/internal/config"
	"lotwatch/internal/events"
	"lotwatch/internal/httpapi"
	"lotwatch/internal/logging"
	"lotwatch/internal/notify"
	"lotwatch/internal/observability"
	"lotwatch/internal/orchestrator"
	"lotwatch/internal/scheduler"
	"lotwatch/internal/scraper"
	"lotwatch/internal/storage"
	"lotwatch/internal/storage/clickhouse"
	"lotwatch/internal/storage/migrations"
	"lotwatch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	verbose := flag.Bool("verbose", false, "Verbose orchestrator output")
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

	var publisher *events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer publisher.Close()
	}

	orch := orchestrator.New(orchestrator.Options{
		VehicleStore:   vehicleStore,
		EquipmentStore: equipmentStore,
		ScoreStore:     scoreStore,
		ArchiveStore:   archiveStore,
		Profile:        profile,
		Verbose:        *verbose,
	})
	metrics := observability.NewMetrics("")
	source := scraper.NewInventoryClient(cfg.Source.BaseURL)
	notifier := notify.New(cfg.Notify.WebhookURL, log)

	cycle := &snapshotCycle{
		source:    source,
		orch:      orch,
		metrics:   metrics,
		publisher: publisher,
		notifier:  notifier,
		log:       log,
	}
	sched := scheduler.New(cfg.Scheduler.CheckInterval, cfg.Scheduler.RunAfter, cycle.run, log)
	go sched.Start(ctx)

	api := httpapi.NewServer(vehicleStore, equipmentStore, scoreStore)
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "address", cfg.Server.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
}

// snapshotCycle is the scheduled unit of work: fetch one snapshot, reconcile
// it against history, then fan the outcome out to metrics, the event bus and
// the webhook.
type snapshotCycle struct {
	source    scraper.SnapshotSource
	orch      *orchestrator.Orchestrator
	metrics   *observability.Metrics
	publisher *events.Publisher
	notifier  *notify.Notifier
	log       *slog.Logger
}

func (c *snapshotCycle) run(ctx context.Context) error {
	started := time.Now()
	scrapedAt := started.UTC()

	snapshot, err := c.source.FetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	c.log.Info("snapshot fetched", "vehicles", len(snapshot))

	result, err := c.orch.Run(ctx, snapshot, scrapedAt)
	if err != nil {
		return fmt.Errorf("reconcile snapshot: %w", err)
	}

	c.metrics.ObserveRun(
		result.SnapshotCount, result.New, result.Updated, result.Sold,
		result.Skipped, len(result.Errors), time.Since(started).Seconds(),
	)
	c.metrics.LastRunEpoch.Set(float64(time.Now().Unix()))
	c.metrics.BatchApplyDuration.Observe(result.BatchApplyDuration.Seconds())
	c.metrics.ArchivedRows.Add(float64(result.ArchivedRows))
	for _, change := range result.Changes {
		if change.Composite != nil {
			c.metrics.CompositeScore.Observe(*change.Composite)
		}
	}

	if c.publisher != nil {
		summary := events.RunSummaryEvent{
			Seen:    result.SnapshotCount,
			New:     result.New,
			Changed: result.Updated,
			Sold:    result.Sold,
			Skipped: result.Skipped,
			Errors:  len(result.Errors),
		}
		if err := c.publisher.PublishChanges(ctx, result.RunDate, result.Changes, summary); err != nil {
			c.log.Error("publish change events", "err", err)
		}
	}

	c.notifier.Push(ctx, notify.Summary{
		RunDate: result.RunDate.Format("2006-01-02"),
		Seen:    result.SnapshotCount,
		New:     result.New,
		Changed: result.Updated,
		Sold:    result.Sold,
		Skipped: result.Skipped,
		Errors:  len(result.Errors),
	})

	for _, e := range result.Errors {
		c.log.Warn("run error", "detail", e)
	}
	return nil
}
