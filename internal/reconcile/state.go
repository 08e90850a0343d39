package reconcile

import (
	"sort"

	"lotwatch/internal/domain"
)

// LatestState is the read-only is_latest view of all three histories, keyed
// by vehicle identifier. It is built once at run start; the merge never
// mutates it.
type LatestState struct {
	Vehicles  map[int64]*domain.VehicleRecord
	Equipment map[int64]map[domain.EquipmentKey]*domain.EquipmentRecord
	Scores    map[int64]*domain.ScoreRecord
}

// NewLatestState returns an empty state (first run ever).
func NewLatestState() *LatestState {
	return &LatestState{
		Vehicles:  make(map[int64]*domain.VehicleRecord),
		Equipment: make(map[int64]map[domain.EquipmentKey]*domain.EquipmentRecord),
		Scores:    make(map[int64]*domain.ScoreRecord),
	}
}

// BuildLatestState indexes the latest rows by vehicle identifier. A vehicle
// identifier appearing on more than one latest row in the same history marks
// a prior atomicity violation upstream; such identifiers are excluded from
// the state and returned so the caller can surface them. They are never
// silently repaired.
func BuildLatestState(
	vehicles []*domain.VehicleRecord,
	equipment []*domain.EquipmentRecord,
	scores []*domain.ScoreRecord,
) (*LatestState, []int64) {
	state := NewLatestState()
	conflicts := make(map[int64]struct{})

	for _, r := range vehicles {
		if _, dup := state.Vehicles[r.VehicleID]; dup {
			conflicts[r.VehicleID] = struct{}{}
			continue
		}
		state.Vehicles[r.VehicleID] = r
	}

	for _, r := range equipment {
		byKey, ok := state.Equipment[r.VehicleID]
		if !ok {
			byKey = make(map[domain.EquipmentKey]*domain.EquipmentRecord)
			state.Equipment[r.VehicleID] = byKey
		}
		if _, dup := byKey[r.Key()]; dup {
			conflicts[r.VehicleID] = struct{}{}
			continue
		}
		byKey[r.Key()] = r
	}

	for _, r := range scores {
		if _, dup := state.Scores[r.VehicleID]; dup {
			conflicts[r.VehicleID] = struct{}{}
			continue
		}
		state.Scores[r.VehicleID] = r
	}

	if len(conflicts) == 0 {
		return state, nil
	}

	ids := make([]int64, 0, len(conflicts))
	for id := range conflicts {
		delete(state.Vehicles, id)
		delete(state.Equipment, id)
		delete(state.Scores, id)
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return state, ids
}
