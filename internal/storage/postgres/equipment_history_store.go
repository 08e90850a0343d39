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

// EquipmentHistoryStore implements storage.EquipmentHistoryStore using
// PostgreSQL.
type EquipmentHistoryStore struct {
	pool *Pool
}

// NewEquipmentHistoryStore creates a new EquipmentHistoryStore.
func NewEquipmentHistoryStore(pool *Pool) *EquipmentHistoryStore {
	return &EquipmentHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EquipmentHistoryStore = (*EquipmentHistoryStore)(nil)

const equipmentColumns = `
	row_id, vehicle_id, category, name, valid_from, valid_to, is_latest, scraped_at
`

// InsertVersions adds multiple versions in one transaction. Fails the entire
// batch with ErrDuplicateKey on any duplicate.
func (s *EquipmentHistoryStore) InsertVersions(ctx context.Context, records []*domain.EquipmentRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin equipment insert: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO equipment_history (` + equipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, r := range records {
		_, err := tx.Exec(ctx, query,
			r.RowID,
			r.VehicleID,
			r.Category,
			r.Name,
			r.ValidFrom,
			r.ValidTo,
			r.IsLatest,
			r.ScrapedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert equipment version: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit equipment insert: %w", err)
	}
	return nil
}

// CloseVersion sets valid_to and clears is_latest on an open version.
// Closing an already-closed version is a no-op.
func (s *EquipmentHistoryStore) CloseVersion(ctx context.Context, rowID uuid.UUID, validTo time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE equipment_history
		SET valid_to = $2, is_latest = FALSE
		WHERE row_id = $1 AND is_latest
	`, rowID, validTo)
	if err != nil {
		return fmt.Errorf("close equipment version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var one int
		err := s.pool.QueryRow(ctx, `SELECT 1 FROM equipment_history WHERE row_id = $1`, rowID).Scan(&one)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check equipment row: %w", err)
		}
	}
	return nil
}

// GetLatest retrieves all is_latest rows.
func (s *EquipmentHistoryStore) GetLatest(ctx context.Context) ([]*domain.EquipmentRecord, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment_history
		WHERE is_latest
		ORDER BY vehicle_id ASC, category ASC, name ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get latest equipment: %w", err)
	}
	defer rows.Close()

	return scanEquipment(rows)
}

// GetByVehicleID retrieves a vehicle's full equipment history.
func (s *EquipmentHistoryStore) GetByVehicleID(ctx context.Context, vehicleID int64) ([]*domain.EquipmentRecord, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment_history
		WHERE vehicle_id = $1
		ORDER BY valid_from ASC, category ASC, name ASC
	`

	rows, err := s.pool.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("get equipment history: %w", err)
	}
	defer rows.Close()

	return scanEquipment(rows)
}

// GetAsOf retrieves the rows whose validity interval covers t.
func (s *EquipmentHistoryStore) GetAsOf(ctx context.Context, vehicleID int64, t time.Time) ([]*domain.EquipmentRecord, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment_history
		WHERE vehicle_id = $1
		  AND valid_from <= $2
		  AND (valid_to IS NULL OR valid_to > $2)
		ORDER BY category ASC, name ASC
	`

	rows, err := s.pool.Query(ctx, query, vehicleID, t)
	if err != nil {
		return nil, fmt.Errorf("get equipment as of: %w", err)
	}
	defer rows.Close()

	return scanEquipment(rows)
}

// scanEquipment scans rows into a slice of EquipmentRecord.
func scanEquipment(rows pgx.Rows) ([]*domain.EquipmentRecord, error) {
	var records []*domain.EquipmentRecord

	for rows.Next() {
		var r domain.EquipmentRecord

		err := rows.Scan(
			&r.RowID,
			&r.VehicleID,
			&r.Category,
			&r.Name,
			&r.ValidFrom,
			&r.ValidTo,
			&r.IsLatest,
			&r.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan equipment row: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment rows: %w", err)
	}

	return records, nil
}
