package export

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lotwatch/internal/domain"
	"lotwatch/internal/storage/memory"
)

func seedStores(t *testing.T) (*memory.VehicleHistoryStore, *memory.EquipmentHistoryStore, *memory.ScoreHistoryStore) {
	t.Helper()
	ctx := context.Background()

	vehicles := memory.NewVehicleHistoryStore()
	equipment := memory.NewEquipmentHistoryStore()
	scores := memory.NewScoreHistoryStore()

	day := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	composite := 66.88

	err := vehicles.InsertVersion(ctx, &domain.VehicleRecord{
		RowID:      uuid.New(),
		VehicleID:  42,
		ModelName:  "i4 eDrive40, M Sport",
		Price:      decimal.New(4890050, -2),
		Kilometers: 21000,
		FirstSeen:  day,
		LastSeen:   day,
		ValidFrom:  day,
		IsLatest:   true,
		Status:     domain.StatusActive,
		ScrapedAt:  day,
	})
	if err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}

	err = equipment.InsertVersions(ctx, []*domain.EquipmentRecord{
		{RowID: uuid.New(), VehicleID: 42, Category: "Comfort", Name: "Heated seats", ValidFrom: day, IsLatest: true, ScrapedAt: day},
		{RowID: uuid.New(), VehicleID: 42, Category: "Sound", Name: "Harman Kardon", ValidFrom: day, IsLatest: true, ScrapedAt: day},
	})
	if err != nil {
		t.Fatalf("seed equipment: %v", err)
	}

	err = scores.InsertVersion(ctx, &domain.ScoreRecord{
		RowID:     uuid.New(),
		VehicleID: 42,
		Scores:    domain.ScoreBundle{Composite: &composite},
		ValidFrom: day,
		IsLatest:  true,
		ScrapedAt: day,
	})
	if err != nil {
		t.Fatalf("seed score: %v", err)
	}

	return vehicles, equipment, scores
}

func TestRenderCSV(t *testing.T) {
	vehicles, equipment, scores := seedStores(t)
	gen := NewGenerator(vehicles, equipment, scores).
		WithClock(func() time.Time { return time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC) })

	view, err := gen.LatestView(context.Background())
	if err != nil {
		t.Fatalf("LatestView: %v", err)
	}

	out := RenderCSV(view)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "vehicle_id,model_name,price") {
		t.Errorf("header = %q", lines[0])
	}

	row := lines[1]
	if !strings.Contains(row, `"i4 eDrive40, M Sport"`) {
		t.Errorf("model name with comma not quoted: %q", row)
	}
	if !strings.Contains(row, "48900.50") {
		t.Errorf("price missing: %q", row)
	}
	if !strings.Contains(row, ",2,") {
		t.Errorf("equipment count missing: %q", row)
	}
	if !strings.Contains(row, "66.88") {
		t.Errorf("composite score missing: %q", row)
	}
	// Undefined sub-scores render as empty fields, not zeros.
	if strings.Contains(row, "0.00") {
		t.Errorf("undefined score rendered as zero: %q", row)
	}
}

func TestRenderEquipmentJSON(t *testing.T) {
	vehicles, equipment, scores := seedStores(t)
	gen := NewGenerator(vehicles, equipment, scores)

	summary, err := gen.EquipmentSummary(context.Background())
	if err != nil {
		t.Fatalf("EquipmentSummary: %v", err)
	}

	out, err := RenderEquipmentJSON(summary)
	if err != nil {
		t.Fatalf("RenderEquipmentJSON: %v", err)
	}

	var decoded EquipmentSummary
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Categories["Comfort"]) != 1 || decoded.Categories["Comfort"][0] != "Heated seats" {
		t.Errorf("categories = %v", decoded.Categories)
	}
}
