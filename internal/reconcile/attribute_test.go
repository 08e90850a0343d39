package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lotwatch/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snapFixture(id int64) *domain.VehicleSnapshot {
	return &domain.VehicleSnapshot{
		VehicleID:  id,
		ModelName:  "i4 eDrive40",
		Price:      decimal.NewFromInt(48900),
		Kilometers: 21000,
		Link:       "https://example.test/vehicle/42",
		ScrapedAt:  time.Date(2025, 8, 15, 6, 0, 0, 0, time.UTC),
	}
}

func activeRecord(s *domain.VehicleSnapshot, firstSeen, validFrom time.Time) *domain.VehicleRecord {
	return &domain.VehicleRecord{
		RowID:      uuid.New(),
		VehicleID:  s.VehicleID,
		ModelName:  s.ModelName,
		Price:      s.Price,
		Kilometers: s.Kilometers,
		Link:       s.Link,
		FirstSeen:  firstSeen,
		LastSeen:   validFrom,
		ValidFrom:  validFrom,
		IsLatest:   true,
		Status:     domain.StatusActive,
		ScrapedAt:  s.ScrapedAt,
	}
}

func TestReconcileAttributes_NewVehicle(t *testing.T) {
	runDate := date(2025, 8, 15)
	batch := &Batch{}

	rec, change := ReconcileAttributes(nil, snapFixture(42), runDate, batch)

	if change != ChangeNew {
		t.Fatalf("change = %q, want %q", change, ChangeNew)
	}
	if len(batch.VehicleInserts) != 1 || len(batch.VehicleCloses) != 0 || len(batch.VehicleTouches) != 0 {
		t.Fatalf("batch = %d inserts %d closes %d touches, want 1/0/0",
			len(batch.VehicleInserts), len(batch.VehicleCloses), len(batch.VehicleTouches))
	}
	if !rec.FirstSeen.Equal(runDate) || !rec.ValidFrom.Equal(runDate) {
		t.Errorf("FirstSeen=%v ValidFrom=%v, want both %v", rec.FirstSeen, rec.ValidFrom, runDate)
	}
	if rec.ValidTo != nil || !rec.IsLatest || rec.Status != domain.StatusActive {
		t.Errorf("new version not open/latest/active: %+v", rec)
	}
}

func TestReconcileAttributes_UnchangedTouchesOnly(t *testing.T) {
	snap := snapFixture(42)
	prior := activeRecord(snap, date(2025, 8, 10), date(2025, 8, 10))
	runDate := date(2025, 8, 15)
	batch := &Batch{}

	rec, change := ReconcileAttributes(prior, snap, runDate, batch)

	if change != ChangeUnchanged {
		t.Fatalf("change = %q, want %q", change, ChangeUnchanged)
	}
	if len(batch.VehicleInserts) != 0 || len(batch.VehicleCloses) != 0 {
		t.Fatalf("unchanged vehicle produced inserts/closes")
	}
	if len(batch.VehicleTouches) != 1 {
		t.Fatalf("touches = %d, want 1", len(batch.VehicleTouches))
	}
	if !batch.VehicleTouches[0].LastSeen.Equal(runDate) {
		t.Errorf("touch LastSeen = %v, want %v", batch.VehicleTouches[0].LastSeen, runDate)
	}
	if rec.RowID != prior.RowID {
		t.Errorf("unchanged vehicle got a new row id")
	}
	if !rec.LastSeen.Equal(runDate) {
		t.Errorf("returned LastSeen = %v, want %v", rec.LastSeen, runDate)
	}
	if !prior.LastSeen.Equal(date(2025, 8, 10)) {
		t.Errorf("prior record was mutated")
	}
}

func TestReconcileAttributes_PriceChangeCutsVersion(t *testing.T) {
	snap := snapFixture(42)
	firstSeen := date(2025, 8, 1)
	prior := activeRecord(snap, firstSeen, date(2025, 8, 10))
	runDate := date(2025, 8, 15)

	changed := *snap
	changed.Price = decimal.NewFromInt(46900)

	batch := &Batch{}
	rec, change := ReconcileAttributes(prior, &changed, runDate, batch)

	if change != ChangeUpdated {
		t.Fatalf("change = %q, want %q", change, ChangeUpdated)
	}
	if len(batch.VehicleCloses) != 1 || len(batch.VehicleInserts) != 1 {
		t.Fatalf("batch = %d closes %d inserts, want 1/1", len(batch.VehicleCloses), len(batch.VehicleInserts))
	}
	if batch.VehicleCloses[0].RowID != prior.RowID || !batch.VehicleCloses[0].ValidTo.Equal(runDate) {
		t.Errorf("close targets wrong row or date: %+v", batch.VehicleCloses[0])
	}
	if !rec.FirstSeen.Equal(firstSeen) {
		t.Errorf("FirstSeen = %v, want preserved %v", rec.FirstSeen, firstSeen)
	}
	if !rec.ValidFrom.Equal(runDate) || rec.ValidTo != nil {
		t.Errorf("new version interval wrong: from=%v to=%v", rec.ValidFrom, rec.ValidTo)
	}
	if !rec.Price.Equal(changed.Price) {
		t.Errorf("new version price = %s, want %s", rec.Price, changed.Price)
	}
}

func TestReconcileAttributes_SoldVehicleReappears(t *testing.T) {
	snap := snapFixture(42)
	firstSeen := date(2025, 7, 1)
	prior := activeRecord(snap, firstSeen, date(2025, 8, 10))
	prior.Status = domain.StatusSold

	batch := &Batch{}
	rec, change := ReconcileAttributes(prior, snap, date(2025, 8, 15), batch)

	if change != ChangeUpdated {
		t.Fatalf("change = %q, want %q", change, ChangeUpdated)
	}
	if len(batch.VehicleCloses) != 1 || len(batch.VehicleInserts) != 1 {
		t.Fatalf("sold reappearance must close and reopen, got %d/%d",
			len(batch.VehicleCloses), len(batch.VehicleInserts))
	}
	if rec.Status != domain.StatusActive {
		t.Errorf("reopened status = %q, want %q", rec.Status, domain.StatusActive)
	}
	if !rec.FirstSeen.Equal(firstSeen) {
		t.Errorf("FirstSeen = %v, want preserved %v", rec.FirstSeen, firstSeen)
	}
}

func TestReconcileAttributes_SameDayChangeDeferred(t *testing.T) {
	snap := snapFixture(42)
	runDate := date(2025, 8, 15)
	prior := activeRecord(snap, date(2025, 8, 1), runDate)

	changed := *snap
	changed.Price = decimal.NewFromInt(46900)

	batch := &Batch{}
	rec, change := ReconcileAttributes(prior, &changed, runDate, batch)

	if change != ChangeDeferred {
		t.Fatalf("change = %q, want %q", change, ChangeDeferred)
	}
	if len(batch.VehicleCloses) != 0 || len(batch.VehicleInserts) != 0 {
		t.Fatalf("same-day change produced %d closes %d inserts, want none",
			len(batch.VehicleCloses), len(batch.VehicleInserts))
	}
	if len(batch.VehicleTouches) != 1 {
		t.Fatalf("touches = %d, want 1", len(batch.VehicleTouches))
	}
	if rec.RowID != prior.RowID || !rec.Price.Equal(prior.Price) {
		t.Errorf("the day's version must stand: %+v", rec)
	}
	if !rec.IsLatest || rec.ValidTo != nil {
		t.Errorf("latest version no longer open latest: %+v", rec)
	}
}

func TestCloseAsSold(t *testing.T) {
	snap := snapFixture(42)
	prior := activeRecord(snap, date(2025, 8, 1), date(2025, 8, 10))
	runDate := date(2025, 8, 15)
	scrapedAt := time.Date(2025, 8, 15, 6, 0, 0, 0, time.UTC)

	batch := &Batch{}
	sold := CloseAsSold(prior, runDate, scrapedAt, batch)

	if len(batch.VehicleCloses) != 1 || batch.VehicleCloses[0].RowID != prior.RowID {
		t.Fatalf("prior row not closed")
	}
	if len(batch.VehicleInserts) != 1 {
		t.Fatalf("inserts = %d, want 1", len(batch.VehicleInserts))
	}
	if sold.RowID == prior.RowID {
		t.Errorf("sold version reuses prior row id")
	}
	if sold.Status != domain.StatusSold || sold.ValidTo != nil || !sold.IsLatest {
		t.Errorf("sold version not terminal open latest: %+v", sold)
	}
	if !sold.ValidFrom.Equal(runDate) {
		t.Errorf("sold ValidFrom = %v, want %v", sold.ValidFrom, runDate)
	}
	if !sold.Price.Equal(prior.Price) || sold.Kilometers != prior.Kilometers {
		t.Errorf("sold version does not carry last-known attributes")
	}
}
