package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ScoreBundle holds the four sub-scores and the composite for one vehicle.
// Every score is in [0,100]; nil means undefined (missing inputs), which is
// distinct from zero.
type ScoreBundle struct {
	ValueEfficiency  *float64
	AgeUsage         *float64
	PerformanceRange *float64
	Equipment        *float64
	Composite        *float64
}

// Equal reports whether two bundles match within tol on every score.
// A nil on one side and a value on the other counts as a change.
func (b ScoreBundle) Equal(other ScoreBundle, tol float64) bool {
	return equalScore(b.ValueEfficiency, other.ValueEfficiency, tol) &&
		equalScore(b.AgeUsage, other.AgeUsage, tol) &&
		equalScore(b.PerformanceRange, other.PerformanceRange, tol) &&
		equalScore(b.Equipment, other.Equipment, tol) &&
		equalScore(b.Composite, other.Composite, tol)
}

func equalScore(a, b *float64, tol float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) <= tol
}

// ScoreRecord is one SCD Type 2 version of a vehicle's score bundle.
// Corresponds to the score_history table.
type ScoreRecord struct {
	RowID     uuid.UUID
	VehicleID int64
	Scores    ScoreBundle
	ValidFrom time.Time
	ValidTo   *time.Time // nil = open interval
	IsLatest  bool
	ScrapedAt time.Time
}

// SameVersion reports whether two rows describe the same version: same
// validity start and the same bundle within tol.
func (r *ScoreRecord) SameVersion(other *ScoreRecord, tol float64) bool {
	return r.ValidFrom.Equal(other.ValidFrom) && r.Scores.Equal(other.Scores, tol)
}
