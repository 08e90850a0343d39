package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"lotwatch/internal/domain"
	"lotwatch/internal/storage"
)

// VehicleHistoryStore implements storage.VehicleHistoryStore using PostgreSQL.
type VehicleHistoryStore struct {
	pool *Pool
}

// NewVehicleHistoryStore creates a new VehicleHistoryStore.
func NewVehicleHistoryStore(pool *Pool) *VehicleHistoryStore {
	return &VehicleHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VehicleHistoryStore = (*VehicleHistoryStore)(nil)

const vehicleColumns = `
	row_id, vehicle_id, model_name, price, kilometers, registration_date,
	power_kw, power_ps, battery_range_km, link,
	first_seen_date, last_seen_date, valid_from, valid_to, is_latest, status, scraped_at
`

// InsertVersion adds a new version. Returns ErrDuplicateKey if a version with
// the same (vehicle_id, valid_from, status) exists.
func (s *VehicleHistoryStore) InsertVersion(ctx context.Context, r *domain.VehicleRecord) error {
	query := `
		INSERT INTO vehicle_history (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RowID,
		r.VehicleID,
		r.ModelName,
		r.Price,
		r.Kilometers,
		r.RegistrationDate,
		r.PowerKW,
		r.PowerPS,
		r.BatteryRangeKM,
		r.Link,
		r.FirstSeen,
		r.LastSeen,
		r.ValidFrom,
		r.ValidTo,
		r.IsLatest,
		string(r.Status),
		r.ScrapedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert vehicle version: %w", err)
	}
	return nil
}

// CloseVersion sets valid_to and clears is_latest on an open version.
// Closing an already-closed version is a no-op.
func (s *VehicleHistoryStore) CloseVersion(ctx context.Context, rowID uuid.UUID, validTo time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE vehicle_history
		SET valid_to = $2, is_latest = FALSE
		WHERE row_id = $1 AND is_latest
	`, rowID, validTo)
	if err != nil {
		return fmt.Errorf("close vehicle version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.requireRow(ctx, rowID)
	}
	return nil
}

// TouchLastSeen updates last_seen_date and scraped_at in place.
func (s *VehicleHistoryStore) TouchLastSeen(ctx context.Context, rowID uuid.UUID, lastSeen, scrapedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE vehicle_history
		SET last_seen_date = $2, scraped_at = $3
		WHERE row_id = $1
	`, rowID, lastSeen, scrapedAt)
	if err != nil {
		return fmt.Errorf("touch vehicle version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetLatest retrieves all is_latest rows, ordered by vehicle_id ASC.
func (s *VehicleHistoryStore) GetLatest(ctx context.Context) ([]*domain.VehicleRecord, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicle_history
		WHERE is_latest
		ORDER BY vehicle_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get latest vehicles: %w", err)
	}
	defer rows.Close()

	return scanVehicles(rows)
}

// GetByVehicleID retrieves a vehicle's full version chain, valid_from ASC.
func (s *VehicleHistoryStore) GetByVehicleID(ctx context.Context, vehicleID int64) ([]*domain.VehicleRecord, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicle_history
		WHERE vehicle_id = $1
		ORDER BY valid_from ASC, valid_to ASC NULLS LAST
	`

	rows, err := s.pool.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("get vehicle history: %w", err)
	}
	defer rows.Close()

	return scanVehicles(rows)
}

// requireRow distinguishes "already closed" from "no such row".
func (s *VehicleHistoryStore) requireRow(ctx context.Context, rowID uuid.UUID) error {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM vehicle_history WHERE row_id = $1`, rowID).Scan(&one)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("check vehicle row: %w", err)
	}
	return nil
}

// scanVehicles scans rows into a slice of VehicleRecord.
func scanVehicles(rows pgx.Rows) ([]*domain.VehicleRecord, error) {
	var records []*domain.VehicleRecord

	for rows.Next() {
		var r domain.VehicleRecord
		var statusStr string

		err := rows.Scan(
			&r.RowID,
			&r.VehicleID,
			&r.ModelName,
			&r.Price,
			&r.Kilometers,
			&r.RegistrationDate,
			&r.PowerKW,
			&r.PowerPS,
			&r.BatteryRangeKM,
			&r.Link,
			&r.FirstSeen,
			&r.LastSeen,
			&r.ValidFrom,
			&r.ValidTo,
			&r.IsLatest,
			&statusStr,
			&r.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle row: %w", err)
		}

		r.Status = domain.VehicleStatus(statusStr)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicle rows: %w", err)
	}

	return records, nil
}
