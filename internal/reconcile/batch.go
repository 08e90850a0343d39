// Package reconcile implements the SCD Type 2 merge core: it diffs one run's
// snapshot against the current latest state of the three histories and emits
// the row operations that bring them up to date. The package performs no I/O;
// applying the batch is the orchestrator's job.
package reconcile

import (
	"time"

	"github.com/google/uuid"

	"lotwatch/internal/domain"
)

// RowClose ends an open version: set valid_to and drop is_latest.
type RowClose struct {
	RowID   uuid.UUID
	ValidTo time.Time
}

// VehicleTouch updates last_seen/scraped_at in place on an unchanged latest
// vehicle version. No new version is created.
type VehicleTouch struct {
	RowID     uuid.UUID
	LastSeen  time.Time
	ScrapedAt time.Time
}

// ScoreTouch refreshes the scrape timestamp on an unchanged latest score
// version.
type ScoreTouch struct {
	RowID     uuid.UUID
	ScrapedAt time.Time
}

// Batch is the complete set of row operations produced by one merge run.
// The persistence layer applies it atomically per vehicle per table.
type Batch struct {
	VehicleInserts []*domain.VehicleRecord
	VehicleCloses  []RowClose
	VehicleTouches []VehicleTouch

	EquipmentInserts []*domain.EquipmentRecord
	EquipmentCloses  []RowClose

	ScoreInserts []*domain.ScoreRecord
	ScoreCloses  []RowClose
	ScoreTouches []ScoreTouch
}

// Empty reports whether the batch creates or closes any version. Touches do
// not count: an identical re-run produces a touch-only batch.
func (b *Batch) Empty() bool {
	return len(b.VehicleInserts) == 0 && len(b.VehicleCloses) == 0 &&
		len(b.EquipmentInserts) == 0 && len(b.EquipmentCloses) == 0 &&
		len(b.ScoreInserts) == 0 && len(b.ScoreCloses) == 0
}
