package reconcile

import (
	"time"

	"github.com/google/uuid"

	"lotwatch/internal/domain"
)

// Change classifies what a reconciler did with one vehicle.
type Change string

const (
	ChangeNew       Change = "new"
	ChangeUpdated   Change = "changed"
	ChangeUnchanged Change = "unchanged"
	ChangeSold      Change = "sold"

	// ChangeDeferred marks a differing observation on a date whose version is
	// already cut. The day's version stands; the change lands on the next
	// run date.
	ChangeDeferred Change = "deferred"
)

// ReconcileAttributes versions one vehicle's attribute row against its
// current latest version. It appends the required operations to the batch and
// returns the version that is latest after the run.
//
// A prior sold version is reopened as active when the identifier reappears:
// the identifier is trusted as stable across runs, so a re-listing is treated
// as an attribute change.
func ReconcileAttributes(prior *domain.VehicleRecord, snap *domain.VehicleSnapshot, runDate time.Time, batch *Batch) (*domain.VehicleRecord, Change) {
	if prior == nil {
		rec := recordFromSnapshot(snap, runDate, runDate)
		batch.VehicleInserts = append(batch.VehicleInserts, rec)
		return rec, ChangeNew
	}

	if prior.Status == domain.StatusActive && prior.SameAttributes(snap) {
		touchVehicle(prior, snap, runDate, batch)
		return touchedCopy(prior, runDate, snap.ScrapedAt), ChangeUnchanged
	}

	// One version per (vehicle_id, valid_from, status): a replacement cut on
	// the same date would collide with the day's version and leave the chain
	// without a latest row. The day's version stands until the next run date.
	if prior.ValidFrom.Equal(runDate) {
		touchVehicle(prior, snap, runDate, batch)
		return touchedCopy(prior, runDate, snap.ScrapedAt), ChangeDeferred
	}

	batch.VehicleCloses = append(batch.VehicleCloses, RowClose{RowID: prior.RowID, ValidTo: runDate})
	rec := recordFromSnapshot(snap, prior.FirstSeen, runDate)
	batch.VehicleInserts = append(batch.VehicleInserts, rec)
	return rec, ChangeUpdated
}

// CloseAsSold ends an active vehicle's chain: the current latest version is
// closed and a terminal open-ended sold version is inserted, carrying the
// last-known attributes. Returns the sold version.
func CloseAsSold(prior *domain.VehicleRecord, runDate time.Time, scrapedAt time.Time, batch *Batch) *domain.VehicleRecord {
	batch.VehicleCloses = append(batch.VehicleCloses, RowClose{RowID: prior.RowID, ValidTo: runDate})

	sold := *prior
	sold.RowID = uuid.New()
	sold.ValidFrom = runDate
	sold.ValidTo = nil
	sold.IsLatest = true
	sold.Status = domain.StatusSold
	sold.ScrapedAt = scrapedAt
	batch.VehicleInserts = append(batch.VehicleInserts, &sold)
	return &sold
}

func touchVehicle(prior *domain.VehicleRecord, snap *domain.VehicleSnapshot, runDate time.Time, batch *Batch) {
	batch.VehicleTouches = append(batch.VehicleTouches, VehicleTouch{
		RowID:     prior.RowID,
		LastSeen:  runDate,
		ScrapedAt: snap.ScrapedAt,
	})
}

func touchedCopy(prior *domain.VehicleRecord, lastSeen, scrapedAt time.Time) *domain.VehicleRecord {
	touched := *prior
	touched.LastSeen = lastSeen
	touched.ScrapedAt = scrapedAt
	return &touched
}

func recordFromSnapshot(s *domain.VehicleSnapshot, firstSeen, runDate time.Time) *domain.VehicleRecord {
	return &domain.VehicleRecord{
		RowID:            uuid.New(),
		VehicleID:        s.VehicleID,
		ModelName:        s.ModelName,
		Price:            s.Price,
		Kilometers:       s.Kilometers,
		RegistrationDate: s.RegistrationDate,
		PowerKW:          s.PowerKW,
		PowerPS:          s.PowerPS,
		BatteryRangeKM:   s.BatteryRangeKM,
		Link:             s.Link,
		FirstSeen:        firstSeen,
		LastSeen:         runDate,
		ValidFrom:        runDate,
		ValidTo:          nil,
		IsLatest:         true,
		Status:           domain.StatusActive,
		ScrapedAt:        s.ScrapedAt,
	}
}
