// Package orchestrator runs one full snapshot cycle end to end.
// It coordinates: load latest state → merge → apply batch → archive
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lotwatch/internal/domain"
	"lotwatch/internal/reconcile"
	"lotwatch/internal/storage"
)

// Orchestrator applies one snapshot run against the three version histories.
// The merge itself is pure; the orchestrator owns all store access.
type Orchestrator struct {
	// Stores
	vehicleStore   storage.VehicleHistoryStore
	equipmentStore storage.EquipmentHistoryStore
	scoreStore     storage.ScoreHistoryStore
	archiveStore   storage.SnapshotArchiveStore

	// Configs
	profile *domain.PreferenceProfile

	// Options
	verbose bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	VehicleStore   storage.VehicleHistoryStore
	EquipmentStore storage.EquipmentHistoryStore
	ScoreStore     storage.ScoreHistoryStore

	// ArchiveStore keeps raw snapshot rows per run. Optional; nil disables
	// archiving.
	ArchiveStore storage.SnapshotArchiveStore

	// Scoring preference profile
	Profile *domain.PreferenceProfile

	// Options
	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		vehicleStore:   opts.VehicleStore,
		equipmentStore: opts.EquipmentStore,
		scoreStore:     opts.ScoreStore,
		archiveStore:   opts.ArchiveStore,
		profile:        opts.Profile,
		verbose:        opts.Verbose,
	}
}

// RunResult contains results from one snapshot run.
type RunResult struct {
	RunDate       time.Time
	SnapshotCount int

	New       int
	Updated   int
	Unchanged int
	Sold      int
	Skipped   int

	// Changes lists the per-vehicle outcomes that altered history, for
	// downstream publishers and notifiers.
	Changes []reconcile.VehicleChange

	ArchivedRows int

	// BatchApplyDuration is how long persisting the merge batch took.
	BatchApplyDuration time.Duration

	Errors []string
}

// Run executes one snapshot cycle.
// Phases:
//  1. Load latest state from the three histories
//  2. Merge the snapshot against it
//  3. Apply the resulting batch (closes, then inserts, then touches)
//  4. Archive the raw snapshot rows
//
// Validity intervals are cut on the UTC calendar date of scrapedAt. Vehicles
// whose latest state is inconsistent are reported and left untouched; the run
// continues for all others. Re-running the same snapshot for the same date is
// a no-op beyond timestamp touches.
func (o *Orchestrator) Run(ctx context.Context, snapshot []*domain.VehicleSnapshot, scrapedAt time.Time) (*RunResult, error) {
	runDate := midnightUTC(scrapedAt)
	result := &RunResult{RunDate: runDate, SnapshotCount: len(snapshot)}

	// Phase 1: Load latest state
	o.log("Phase 1: Loading latest state...")
	state, err := o.loadLatestState(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load latest state) failed: %w", err)
	}
	for _, id := range state.conflicts {
		result.Errors = append(result.Errors,
			fmt.Sprintf("vehicle %d: %v: multiple latest rows", id, storage.ErrInconsistentState))
	}
	o.log("  Loaded %d vehicles, %d score rows (%d inconsistent)",
		len(state.latest.Vehicles), len(state.latest.Scores), len(state.conflicts))

	// Phase 2: Merge
	o.log("Phase 2: Merging %d snapshot rows...", len(snapshot))
	merged := reconcile.Merge(state.latest, snapshot, o.profile, runDate, scrapedAt)
	result.New = merged.New
	result.Updated = merged.Updated
	result.Unchanged = merged.Unchanged
	result.Sold = merged.Sold
	result.Skipped = merged.Skipped
	result.Changes = merged.Changes
	result.Errors = append(result.Errors, merged.Warnings...)
	o.log("  new=%d updated=%d unchanged=%d sold=%d skipped=%d",
		merged.New, merged.Updated, merged.Unchanged, merged.Sold, merged.Skipped)

	// Phase 3: Apply batch
	o.log("Phase 3: Applying batch...")
	applyStart := time.Now()
	applyErrs := o.applyBatch(ctx, merged.Batch)
	result.BatchApplyDuration = time.Since(applyStart)
	result.Errors = append(result.Errors, applyErrs...)
	o.log("  Applied batch in %s (%d errors)", result.BatchApplyDuration, len(applyErrs))

	// Phase 4: Archive raw rows
	if o.archiveStore != nil {
		o.log("Phase 4: Archiving snapshot rows...")
		archived, err := o.archiveSnapshot(ctx, snapshot, runDate)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("archive snapshot: %v", err))
		}
		result.ArchivedRows = archived
	}

	o.log("Run completed: %d rows in, %d new, %d updated, %d sold, %d errors",
		result.SnapshotCount, result.New, result.Updated, result.Sold, len(result.Errors))

	return result, nil
}

// loadedState bundles the latest view with the identifiers excluded from it.
type loadedState struct {
	latest    *reconcile.LatestState
	conflicts []int64
}

// loadLatestState reads the is_latest rows of all three histories.
func (o *Orchestrator) loadLatestState(ctx context.Context) (*loadedState, error) {
	vehicles, err := o.vehicleStore.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest vehicles: %w", err)
	}

	equipment, err := o.equipmentStore.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest equipment: %w", err)
	}

	scores, err := o.scoreStore.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest scores: %w", err)
	}

	latest, conflicts := reconcile.BuildLatestState(vehicles, equipment, scores)
	return &loadedState{latest: latest, conflicts: conflicts}, nil
}

// applyBatch persists all row operations of one merge run. Closes run before
// inserts so a chain never holds two open rows at once. Duplicate key errors
// on insert mean an earlier identical run already applied the row.
func (o *Orchestrator) applyBatch(ctx context.Context, batch *reconcile.Batch) []string {
	var errs []string

	for _, c := range batch.VehicleCloses {
		if err := o.vehicleStore.CloseVersion(ctx, c.RowID, c.ValidTo); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Sprintf("close vehicle row %s: %v", c.RowID, err))
		}
	}
	for _, c := range batch.EquipmentCloses {
		if err := o.equipmentStore.CloseVersion(ctx, c.RowID, c.ValidTo); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Sprintf("close equipment row %s: %v", c.RowID, err))
		}
	}
	for _, c := range batch.ScoreCloses {
		if err := o.scoreStore.CloseVersion(ctx, c.RowID, c.ValidTo); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Sprintf("close score row %s: %v", c.RowID, err))
		}
	}

	for _, r := range batch.VehicleInserts {
		if err := o.vehicleStore.InsertVersion(ctx, r); err != nil {
			// A duplicate key is only an already-applied retry when the stored
			// row carries the same content; anything else is a conflict.
			if errors.Is(err, storage.ErrDuplicateKey) {
				if o.vehicleVersionApplied(ctx, r) {
					continue
				}
				errs = append(errs, fmt.Sprintf("vehicle %d: conflicting version already stored for %s",
					r.VehicleID, r.ValidFrom.Format("2006-01-02")))
				continue
			}
			errs = append(errs, fmt.Sprintf("insert vehicle %d version: %v", r.VehicleID, err))
		}
	}
	if len(batch.EquipmentInserts) > 0 {
		if err := o.equipmentStore.InsertVersions(ctx, batch.EquipmentInserts); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			errs = append(errs, fmt.Sprintf("insert equipment versions: %v", err))
		}
	}
	for _, r := range batch.ScoreInserts {
		if err := o.scoreStore.InsertVersion(ctx, r); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				if o.scoreVersionApplied(ctx, r) {
					continue
				}
				errs = append(errs, fmt.Sprintf("vehicle %d: conflicting score version already stored for %s",
					r.VehicleID, r.ValidFrom.Format("2006-01-02")))
				continue
			}
			errs = append(errs, fmt.Sprintf("insert score for vehicle %d: %v", r.VehicleID, err))
		}
	}

	for _, t := range batch.VehicleTouches {
		if err := o.vehicleStore.TouchLastSeen(ctx, t.RowID, t.LastSeen, t.ScrapedAt); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Sprintf("touch vehicle row %s: %v", t.RowID, err))
		}
	}
	for _, t := range batch.ScoreTouches {
		if err := o.scoreStore.TouchScrapedAt(ctx, t.RowID, t.ScrapedAt); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Sprintf("touch score row %s: %v", t.RowID, err))
		}
	}

	return errs
}

// vehicleVersionApplied reports whether the chain already holds a row
// content-identical to the one a duplicate-key insert tried to add.
func (o *Orchestrator) vehicleVersionApplied(ctx context.Context, r *domain.VehicleRecord) bool {
	chain, err := o.vehicleStore.GetByVehicleID(ctx, r.VehicleID)
	if err != nil {
		return false
	}
	for _, existing := range chain {
		if existing.SameVersion(r) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) scoreVersionApplied(ctx context.Context, r *domain.ScoreRecord) bool {
	chain, err := o.scoreStore.GetByVehicleID(ctx, r.VehicleID)
	if err != nil {
		return false
	}
	for _, existing := range chain {
		if existing.SameVersion(r, reconcile.ScoreTolerance) {
			return true
		}
	}
	return false
}

// archiveSnapshot flattens the run's raw rows into the archive store.
// Skips silently if this run date was already archived.
func (o *Orchestrator) archiveSnapshot(ctx context.Context, snapshot []*domain.VehicleSnapshot, runDate time.Time) (int, error) {
	existing, err := o.archiveStore.CountByRunDate(ctx, runDate)
	if err != nil {
		return 0, fmt.Errorf("count archived rows: %w", err)
	}
	if existing > 0 {
		o.log("  Run date already archived (%d rows), skipping", existing)
		return 0, nil
	}

	rows := make([]*domain.SnapshotRow, 0, len(snapshot))
	for _, s := range snapshot {
		rows = append(rows, domain.ArchiveRow(s, runDate))
	}
	if err := o.archiveStore.InsertBulk(ctx, rows); err != nil {
		return 0, fmt.Errorf("insert archive rows: %w", err)
	}
	return len(rows), nil
}

// midnightUTC truncates a timestamp to its UTC calendar date.
func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
