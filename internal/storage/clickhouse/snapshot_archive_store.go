package clickhouse

import (
	"context"
	"fmt"
	"time"

	"lotwatch/internal/domain"
	"lotwatch/internal/storage"
)

// SnapshotArchiveStore implements storage.SnapshotArchiveStore using
// ClickHouse. The archive is append-only: every run's raw rows are kept
// forever for offline analysis.
type SnapshotArchiveStore struct {
	conn *Conn
}

// NewSnapshotArchiveStore creates a new SnapshotArchiveStore.
func NewSnapshotArchiveStore(conn *Conn) *SnapshotArchiveStore {
	return &SnapshotArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotArchiveStore = (*SnapshotArchiveStore)(nil)

// InsertBulk appends all rows of one run.
func (s *SnapshotArchiveStore) InsertBulk(ctx context.Context, rows []*domain.SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO snapshot_archive (
			run_date, vehicle_id, model_name, price, kilometers,
			registration_date, power_kw, power_ps, battery_range_km,
			equipment_count, link, scraped_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot batch: %w", err)
	}

	for _, r := range rows {
		err := batch.Append(
			r.RunDate,
			r.VehicleID,
			r.ModelName,
			r.Price,
			int32(r.Kilometers),
			r.RegistrationDate,
			intPtrTo32(r.PowerKW),
			intPtrTo32(r.PowerPS),
			intPtrTo32(r.BatteryRangeKM),
			int32(r.EquipmentCount),
			r.Link,
			r.ScrapedAt,
		)
		if err != nil {
			return fmt.Errorf("append snapshot row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send snapshot batch: %w", err)
	}
	return nil
}

// CountByRunDate returns the number of archived rows for a run date.
func (s *SnapshotArchiveStore) CountByRunDate(ctx context.Context, runDate time.Time) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM snapshot_archive WHERE run_date = ?
	`, runDate).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count snapshot rows: %w", err)
	}
	return int64(count), nil
}

func intPtrTo32(v *int) *int32 {
	if v == nil {
		return nil
	}
	out := int32(*v)
	return &out
}
