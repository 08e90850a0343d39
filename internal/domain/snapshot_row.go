package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRow is the flattened, append-only archive form of one observed
// vehicle in one run. Corresponds to the snapshot_archive table.
type SnapshotRow struct {
	RunDate          time.Time // calendar date of the run (UTC midnight)
	VehicleID        int64
	ModelName        string
	Price            decimal.Decimal
	Kilometers       int
	RegistrationDate *time.Time
	PowerKW          *int
	PowerPS          *int
	BatteryRangeKM   *int
	EquipmentCount   int
	Link             string
	ScrapedAt        time.Time
}

// ArchiveRow flattens a snapshot for the raw run archive.
func ArchiveRow(s *VehicleSnapshot, runDate time.Time) *SnapshotRow {
	return &SnapshotRow{
		RunDate:          runDate,
		VehicleID:        s.VehicleID,
		ModelName:        s.ModelName,
		Price:            s.Price,
		Kilometers:       s.Kilometers,
		RegistrationDate: s.RegistrationDate,
		PowerKW:          s.PowerKW,
		PowerPS:          s.PowerPS,
		BatteryRangeKM:   s.BatteryRangeKM,
		EquipmentCount:   len(s.Equipment),
		Link:             s.Link,
		ScrapedAt:        s.ScrapedAt,
	}
}
