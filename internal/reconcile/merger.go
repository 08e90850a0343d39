package reconcile

import (
	"fmt"
	"sort"
	"time"

	"lotwatch/internal/domain"
	"lotwatch/internal/scoring"
)

// VehicleChange is one vehicle-level outcome of a merge run, in a form the
// event publisher and notifier can consume directly.
type VehicleChange struct {
	VehicleID int64    `json:"vehicle_id"`
	ModelName string   `json:"model_name"`
	Change    Change   `json:"change"`
	Composite *float64 `json:"composite_score,omitempty"`
}

// MergeResult is the full outcome of one merge run.
type MergeResult struct {
	Batch   *Batch
	Changes []VehicleChange

	New       int
	Updated   int
	Unchanged int
	Sold      int
	Skipped   int

	// Warnings records vehicles the run could not version: malformed snapshot
	// fields, or differing observations deferred because the run date's
	// version is already cut. Their prior latest state is left untouched.
	Warnings []string
}

// Merge reconciles one snapshot run against the latest state and returns the
// batch of row operations for the run. It is deterministic: the output
// depends only on (snapshot, state, profile, runDate, scrapedAt).
//
// runDate is the calendar date the validity intervals are cut on; scrapedAt
// is the full run timestamp recorded on every produced version.
func Merge(
	state *LatestState,
	snapshot []*domain.VehicleSnapshot,
	profile *domain.PreferenceProfile,
	runDate time.Time,
	scrapedAt time.Time,
) *MergeResult {
	result := &MergeResult{Batch: &Batch{}}

	visited := make(map[int64]struct{})
	for _, snap := range dedupeSnapshot(snapshot) {
		if err := validateSnapshot(snap); err != nil {
			result.Skipped++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("vehicle %d excluded: %v", snap.VehicleID, err))
			continue
		}
		visited[snap.VehicleID] = struct{}{}

		latest, change := ReconcileAttributes(state.Vehicles[snap.VehicleID], snap, runDate, result.Batch)
		ReconcileEquipment(snap.VehicleID, state.Equipment[snap.VehicleID], snap.Equipment, runDate, scrapedAt, result.Batch)

		bundle := scoring.Score(snap, profile)
		scoreChange := ReconcileScores(state.Scores[snap.VehicleID], snap.VehicleID, bundle, runDate, scrapedAt, result.Batch)
		if scoreChange == ChangeDeferred && change != ChangeDeferred {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("vehicle %d: score version for %s already cut, differing rerun deferred to next run date",
					snap.VehicleID, runDate.Format("2006-01-02")))
		}

		switch change {
		case ChangeNew:
			result.New++
		case ChangeUpdated:
			result.Updated++
		case ChangeUnchanged:
			result.Unchanged++
		case ChangeDeferred:
			result.Unchanged++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("vehicle %d: version for %s already cut, differing rerun deferred to next run date",
					snap.VehicleID, runDate.Format("2006-01-02")))
		}
		if change != ChangeUnchanged && change != ChangeDeferred {
			result.Changes = append(result.Changes, VehicleChange{
				VehicleID: latest.VehicleID,
				ModelName: latest.ModelName,
				Change:    change,
				Composite: bundle.Composite,
			})
		}
	}

	// Vehicles present in history but absent from this run are sold on the
	// spot: the source inventory listing is authoritative per run.
	for _, id := range sortedVehicleIDs(state.Vehicles) {
		prior := state.Vehicles[id]
		if _, seen := visited[id]; seen {
			continue
		}
		if prior.Status != domain.StatusActive {
			continue
		}

		sold := CloseAsSold(prior, runDate, scrapedAt, result.Batch)
		CloseAllEquipment(state.Equipment[id], runDate, result.Batch)
		FinalScoreForSold(state.Scores[id], id, runDate, scrapedAt, result.Batch)

		result.Sold++
		var composite *float64
		if score := state.Scores[id]; score != nil {
			composite = score.Scores.Composite
		}
		result.Changes = append(result.Changes, VehicleChange{
			VehicleID: sold.VehicleID,
			ModelName: sold.ModelName,
			Change:    ChangeSold,
			Composite: composite,
		})
	}

	return result
}

// validateSnapshot rejects records whose required fields are out of domain.
func validateSnapshot(s *domain.VehicleSnapshot) error {
	if s.VehicleID <= 0 {
		return fmt.Errorf("non-positive vehicle id %d", s.VehicleID)
	}
	if s.ModelName == "" {
		return fmt.Errorf("empty model name")
	}
	if s.Price.IsNegative() || s.Price.IsZero() {
		return fmt.Errorf("non-positive price %s", s.Price)
	}
	if s.Kilometers < 0 {
		return fmt.Errorf("negative odometer %d", s.Kilometers)
	}
	return nil
}

// dedupeSnapshot keeps the last occurrence of each identifier and returns the
// run in ascending identifier order for deterministic output.
func dedupeSnapshot(snapshot []*domain.VehicleSnapshot) []*domain.VehicleSnapshot {
	byID := make(map[int64]*domain.VehicleSnapshot, len(snapshot))
	for _, s := range snapshot {
		byID[s.VehicleID] = s
	}

	out := make([]*domain.VehicleSnapshot, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

func sortedVehicleIDs(m map[int64]*domain.VehicleRecord) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
