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

// ScoreHistoryStore implements storage.ScoreHistoryStore using PostgreSQL.
type ScoreHistoryStore struct {
	pool *Pool
}

// NewScoreHistoryStore creates a new ScoreHistoryStore.
func NewScoreHistoryStore(pool *Pool) *ScoreHistoryStore {
	return &ScoreHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

const scoreColumns = `
	row_id, vehicle_id, value_efficiency_score, age_usage_score,
	performance_range_score, equipment_score, composite_score,
	valid_from, valid_to, is_latest, scraped_at
`

// InsertVersion adds a new version. Returns ErrDuplicateKey if a version with
// the same (vehicle_id, valid_from) exists.
func (s *ScoreHistoryStore) InsertVersion(ctx context.Context, r *domain.ScoreRecord) error {
	query := `
		INSERT INTO score_history (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RowID,
		r.VehicleID,
		r.Scores.ValueEfficiency,
		r.Scores.AgeUsage,
		r.Scores.PerformanceRange,
		r.Scores.Equipment,
		r.Scores.Composite,
		r.ValidFrom,
		r.ValidTo,
		r.IsLatest,
		r.ScrapedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert score version: %w", err)
	}
	return nil
}

// CloseVersion sets valid_to and clears is_latest on an open version.
// Closing an already-closed version is a no-op.
func (s *ScoreHistoryStore) CloseVersion(ctx context.Context, rowID uuid.UUID, validTo time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE score_history
		SET valid_to = $2, is_latest = FALSE
		WHERE row_id = $1 AND is_latest
	`, rowID, validTo)
	if err != nil {
		return fmt.Errorf("close score version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var one int
		err := s.pool.QueryRow(ctx, `SELECT 1 FROM score_history WHERE row_id = $1`, rowID).Scan(&one)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check score row: %w", err)
		}
	}
	return nil
}

// TouchScrapedAt refreshes scraped_at in place.
func (s *ScoreHistoryStore) TouchScrapedAt(ctx context.Context, rowID uuid.UUID, scrapedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE score_history SET scraped_at = $2 WHERE row_id = $1
	`, rowID, scrapedAt)
	if err != nil {
		return fmt.Errorf("touch score version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetLatest retrieves all is_latest rows, ordered by vehicle_id ASC.
func (s *ScoreHistoryStore) GetLatest(ctx context.Context) ([]*domain.ScoreRecord, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM score_history
		WHERE is_latest
		ORDER BY vehicle_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get latest scores: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// GetByVehicleID retrieves a vehicle's full score chain, valid_from ASC.
func (s *ScoreHistoryStore) GetByVehicleID(ctx context.Context, vehicleID int64) ([]*domain.ScoreRecord, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM score_history
		WHERE vehicle_id = $1
		ORDER BY valid_from ASC, valid_to ASC NULLS LAST
	`

	rows, err := s.pool.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("get score history: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// scanScores scans rows into a slice of ScoreRecord.
func scanScores(rows pgx.Rows) ([]*domain.ScoreRecord, error) {
	var records []*domain.ScoreRecord

	for rows.Next() {
		var r domain.ScoreRecord

		err := rows.Scan(
			&r.RowID,
			&r.VehicleID,
			&r.Scores.ValueEfficiency,
			&r.Scores.AgeUsage,
			&r.Scores.PerformanceRange,
			&r.Scores.Equipment,
			&r.Scores.Composite,
			&r.ValidFrom,
			&r.ValidTo,
			&r.IsLatest,
			&r.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}

	return records, nil
}
