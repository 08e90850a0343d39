// Package export renders the stored latest state as files for downstream
// consumers: a CSV of the current inventory with scores, and a JSON summary
// of the equipment catalogue.
package export

import (
	"context"
	"sort"
	"time"

	"lotwatch/internal/domain"
	"lotwatch/internal/storage"
)

// LatestView is the joined latest state of all vehicles.
type LatestView struct {
	GeneratedAt time.Time
	Rows        []LatestRow
}

// LatestRow is one vehicle's latest attribute version joined with its latest
// score bundle and open equipment count.
type LatestRow struct {
	Vehicle        *domain.VehicleRecord
	Scores         domain.ScoreBundle
	EquipmentCount int
}

// EquipmentSummary groups the currently open equipment catalogue by category.
// Names are unique and sorted within each category.
type EquipmentSummary struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Categories  map[string][]string `json:"categories"`
}

// Generator produces exports from stored data.
type Generator struct {
	vehicleStore   storage.VehicleHistoryStore
	equipmentStore storage.EquipmentHistoryStore
	scoreStore     storage.ScoreHistoryStore
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new export generator.
func NewGenerator(
	vehicleStore storage.VehicleHistoryStore,
	equipmentStore storage.EquipmentHistoryStore,
	scoreStore storage.ScoreHistoryStore,
) *Generator {
	return &Generator{
		vehicleStore:   vehicleStore,
		equipmentStore: equipmentStore,
		scoreStore:     scoreStore,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// LatestView joins the three latest views, ordered by vehicle_id ASC.
func (g *Generator) LatestView(ctx context.Context) (*LatestView, error) {
	vehicles, err := g.vehicleStore.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := g.scoreStore.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	equipment, err := g.equipmentStore.GetLatest(ctx)
	if err != nil {
		return nil, err
	}

	scoresByID := make(map[int64]domain.ScoreBundle, len(scores))
	for _, s := range scores {
		scoresByID[s.VehicleID] = s.Scores
	}
	equipmentCount := make(map[int64]int)
	for _, e := range equipment {
		equipmentCount[e.VehicleID]++
	}

	view := &LatestView{GeneratedAt: g.now()}
	for _, v := range vehicles {
		view.Rows = append(view.Rows, LatestRow{
			Vehicle:        v,
			Scores:         scoresByID[v.VehicleID],
			EquipmentCount: equipmentCount[v.VehicleID],
		})
	}
	return view, nil
}

// EquipmentSummary collects the open equipment catalogue across all vehicles.
func (g *Generator) EquipmentSummary(ctx context.Context) (*EquipmentSummary, error) {
	equipment, err := g.equipmentStore.GetLatest(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]map[string]struct{})
	for _, e := range equipment {
		names, ok := seen[e.Category]
		if !ok {
			names = make(map[string]struct{})
			seen[e.Category] = names
		}
		names[e.Name] = struct{}{}
	}

	summary := &EquipmentSummary{
		GeneratedAt: g.now(),
		Categories:  make(map[string][]string, len(seen)),
	}
	for category, names := range seen {
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		summary.Categories[category] = sorted
	}
	return summary, nil
}
