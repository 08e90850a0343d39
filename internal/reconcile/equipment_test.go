package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"lotwatch/internal/domain"
)

func openEquipment(vehicleID int64, category, name string, validFrom time.Time) *domain.EquipmentRecord {
	return &domain.EquipmentRecord{
		RowID:     uuid.New(),
		VehicleID: vehicleID,
		Category:  category,
		Name:      name,
		ValidFrom: validFrom,
		IsLatest:  true,
	}
}

func equipmentByKey(recs ...*domain.EquipmentRecord) map[domain.EquipmentKey]*domain.EquipmentRecord {
	m := make(map[domain.EquipmentKey]*domain.EquipmentRecord, len(recs))
	for _, r := range recs {
		m[r.Key()] = r
	}
	return m
}

func TestReconcileEquipment_FirstSightOpensAll(t *testing.T) {
	runDate := date(2025, 8, 15)
	batch := &Batch{}

	items := []domain.EquipmentItem{
		{Category: "Comfort", Name: "Heated seats"},
		{Category: "Sound", Name: "Harman Kardon"},
	}
	ReconcileEquipment(42, nil, items, runDate, runDate, batch)

	if len(batch.EquipmentInserts) != 2 || len(batch.EquipmentCloses) != 0 {
		t.Fatalf("batch = %d inserts %d closes, want 2/0",
			len(batch.EquipmentInserts), len(batch.EquipmentCloses))
	}
	for _, r := range batch.EquipmentInserts {
		if r.ValidTo != nil || !r.IsLatest || !r.ValidFrom.Equal(runDate) {
			t.Errorf("inserted row not open latest at run date: %+v", r)
		}
	}
}

func TestReconcileEquipment_SetDifference(t *testing.T) {
	runDate := date(2025, 8, 15)
	a := openEquipment(42, "Comfort", "Heated seats", date(2025, 8, 1))
	b := openEquipment(42, "Sound", "Harman Kardon", date(2025, 8, 1))
	current := equipmentByKey(a, b)

	items := []domain.EquipmentItem{
		{Category: "Comfort", Name: "Heated seats"},
		{Category: "Driving", Name: "Adaptive cruise control"},
	}

	batch := &Batch{}
	ReconcileEquipment(42, current, items, runDate, runDate, batch)

	if len(batch.EquipmentInserts) != 1 {
		t.Fatalf("inserts = %d, want 1", len(batch.EquipmentInserts))
	}
	if batch.EquipmentInserts[0].Name != "Adaptive cruise control" {
		t.Errorf("inserted %q, want the appearing item", batch.EquipmentInserts[0].Name)
	}
	if len(batch.EquipmentCloses) != 1 || batch.EquipmentCloses[0].RowID != b.RowID {
		t.Fatalf("want exactly the disappeared item closed, got %+v", batch.EquipmentCloses)
	}
}

func TestReconcileEquipment_NormalizedIdentity(t *testing.T) {
	current := equipmentByKey(openEquipment(42, "Comfort", "Heated seats", date(2025, 8, 1)))
	items := []domain.EquipmentItem{{Category: " COMFORT ", Name: "Heated  Seats"}}

	batch := &Batch{}
	ReconcileEquipment(42, current, items, date(2025, 8, 15), date(2025, 8, 15), batch)

	if len(batch.EquipmentInserts) != 0 || len(batch.EquipmentCloses) != 0 {
		t.Errorf("textual variation produced version churn: %d inserts %d closes",
			len(batch.EquipmentInserts), len(batch.EquipmentCloses))
	}
}

func TestReconcileEquipment_DuplicatesCollapse(t *testing.T) {
	items := []domain.EquipmentItem{
		{Category: "Comfort", Name: "Heated seats"},
		{Category: "comfort", Name: "heated seats"},
	}

	batch := &Batch{}
	ReconcileEquipment(42, nil, items, date(2025, 8, 15), date(2025, 8, 15), batch)

	if len(batch.EquipmentInserts) != 1 {
		t.Errorf("inserts = %d, want duplicates collapsed to 1", len(batch.EquipmentInserts))
	}
}

func TestReconcileEquipment_EmptyNameSkipped(t *testing.T) {
	items := []domain.EquipmentItem{{Category: "Comfort", Name: "   "}}

	batch := &Batch{}
	ReconcileEquipment(42, nil, items, date(2025, 8, 15), date(2025, 8, 15), batch)

	if len(batch.EquipmentInserts) != 0 {
		t.Errorf("blank-named item was versioned")
	}
}

func TestCloseAllEquipment(t *testing.T) {
	runDate := date(2025, 8, 15)
	a := openEquipment(42, "Comfort", "Heated seats", date(2025, 8, 1))
	b := openEquipment(42, "Sound", "Harman Kardon", date(2025, 8, 1))

	batch := &Batch{}
	CloseAllEquipment(equipmentByKey(a, b), runDate, batch)

	if len(batch.EquipmentCloses) != 2 {
		t.Fatalf("closes = %d, want 2", len(batch.EquipmentCloses))
	}
	for _, c := range batch.EquipmentCloses {
		if !c.ValidTo.Equal(runDate) {
			t.Errorf("close ValidTo = %v, want %v", c.ValidTo, runDate)
		}
	}
}
