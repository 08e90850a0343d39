package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lotwatch/internal/domain"
)

// VehicleHistoryStore provides access to vehicle_history storage.
// Rows are never mutated after insertion except by CloseVersion and
// TouchLastSeen.
type VehicleHistoryStore interface {
	// InsertVersion adds a new version. Returns ErrDuplicateKey if a version
	// with the same (vehicle_id, valid_from, status) exists.
	InsertVersion(ctx context.Context, r *domain.VehicleRecord) error

	// CloseVersion sets valid_to and clears is_latest on an open version.
	// Closing an already-closed version is a no-op. Returns ErrNotFound if
	// the row does not exist.
	CloseVersion(ctx context.Context, rowID uuid.UUID, validTo time.Time) error

	// TouchLastSeen updates last_seen_date and scraped_at in place on an
	// existing version.
	TouchLastSeen(ctx context.Context, rowID uuid.UUID, lastSeen, scrapedAt time.Time) error

	// GetLatest retrieves all is_latest rows, ordered by vehicle_id ASC.
	GetLatest(ctx context.Context) ([]*domain.VehicleRecord, error)

	// GetByVehicleID retrieves a vehicle's full version chain, ordered by
	// valid_from ASC.
	GetByVehicleID(ctx context.Context, vehicleID int64) ([]*domain.VehicleRecord, error)
}

// EquipmentHistoryStore provides access to equipment_history storage.
type EquipmentHistoryStore interface {
	// InsertVersions adds multiple versions. Fails the entire batch with
	// ErrDuplicateKey on any duplicate (vehicle_id, category, name, valid_from).
	InsertVersions(ctx context.Context, records []*domain.EquipmentRecord) error

	// CloseVersion sets valid_to and clears is_latest on an open version.
	CloseVersion(ctx context.Context, rowID uuid.UUID, validTo time.Time) error

	// GetLatest retrieves all is_latest rows, ordered by vehicle_id,
	// category, name ASC.
	GetLatest(ctx context.Context) ([]*domain.EquipmentRecord, error)

	// GetByVehicleID retrieves a vehicle's full equipment history, ordered by
	// valid_from, category, name ASC.
	GetByVehicleID(ctx context.Context, vehicleID int64) ([]*domain.EquipmentRecord, error)

	// GetAsOf retrieves the rows whose validity interval covers t, i.e. the
	// vehicle's equipment set as of the most recent run at or before t.
	GetAsOf(ctx context.Context, vehicleID int64, t time.Time) ([]*domain.EquipmentRecord, error)
}

// ScoreHistoryStore provides access to score_history storage.
type ScoreHistoryStore interface {
	// InsertVersion adds a new version. Returns ErrDuplicateKey if a version
	// with the same (vehicle_id, valid_from) exists.
	InsertVersion(ctx context.Context, r *domain.ScoreRecord) error

	// CloseVersion sets valid_to and clears is_latest on an open version.
	CloseVersion(ctx context.Context, rowID uuid.UUID, validTo time.Time) error

	// TouchScrapedAt refreshes scraped_at in place on an existing version.
	TouchScrapedAt(ctx context.Context, rowID uuid.UUID, scrapedAt time.Time) error

	// GetLatest retrieves all is_latest rows, ordered by vehicle_id ASC.
	GetLatest(ctx context.Context) ([]*domain.ScoreRecord, error)

	// GetByVehicleID retrieves a vehicle's full score chain, ordered by
	// valid_from ASC.
	GetByVehicleID(ctx context.Context, vehicleID int64) ([]*domain.ScoreRecord, error)
}

// SnapshotArchiveStore provides access to the append-only raw run archive.
type SnapshotArchiveStore interface {
	// InsertBulk appends all rows of one run.
	InsertBulk(ctx context.Context, rows []*domain.SnapshotRow) error

	// CountByRunDate returns the number of archived rows for a run date.
	CountByRunDate(ctx context.Context, runDate time.Time) (int64, error)
}
