package reconcile

import (
	"time"

	"github.com/google/uuid"

	"lotwatch/internal/domain"
)

// ScoreTolerance is the absolute difference below which two scores count as
// equal, so floating-point noise does not create history versions.
const ScoreTolerance = 1e-6

// ReconcileScores versions one vehicle's score bundle, with the same
// mechanics as the attribute reconciler: open on first sight, touch when the
// bundle is unchanged within tolerance, close-and-reopen otherwise.
func ReconcileScores(prior *domain.ScoreRecord, vehicleID int64, bundle domain.ScoreBundle, runDate time.Time, scrapedAt time.Time, batch *Batch) Change {
	if prior == nil {
		batch.ScoreInserts = append(batch.ScoreInserts, newScoreRecord(vehicleID, bundle, runDate, scrapedAt))
		return ChangeNew
	}

	if prior.Scores.Equal(bundle, ScoreTolerance) {
		batch.ScoreTouches = append(batch.ScoreTouches, ScoreTouch{RowID: prior.RowID, ScrapedAt: scrapedAt})
		return ChangeUnchanged
	}

	// Same collision guard as the attribute reconciler: one score version per
	// (vehicle_id, valid_from), so a differing bundle on the day a version was
	// already cut does not replace it.
	if prior.ValidFrom.Equal(runDate) {
		batch.ScoreTouches = append(batch.ScoreTouches, ScoreTouch{RowID: prior.RowID, ScrapedAt: scrapedAt})
		return ChangeDeferred
	}

	batch.ScoreCloses = append(batch.ScoreCloses, RowClose{RowID: prior.RowID, ValidTo: runDate})
	batch.ScoreInserts = append(batch.ScoreInserts, newScoreRecord(vehicleID, bundle, runDate, scrapedAt))
	return ChangeUpdated
}

// FinalScoreForSold emits the one last score version a vehicle receives when
// it is marked sold, carrying the bundle of its last-known attributes.
// Scoring stops afterwards: sold vehicles no longer appear in snapshots.
func FinalScoreForSold(prior *domain.ScoreRecord, vehicleID int64, runDate time.Time, scrapedAt time.Time, batch *Batch) {
	if prior == nil {
		return
	}
	// A version cut on the sold date already carries the final bundle; closing
	// it for an identical reopen would collide on (vehicle_id, valid_from).
	if prior.ValidFrom.Equal(runDate) {
		return
	}
	batch.ScoreCloses = append(batch.ScoreCloses, RowClose{RowID: prior.RowID, ValidTo: runDate})
	batch.ScoreInserts = append(batch.ScoreInserts, newScoreRecord(vehicleID, prior.Scores, runDate, scrapedAt))
}

func newScoreRecord(vehicleID int64, bundle domain.ScoreBundle, runDate time.Time, scrapedAt time.Time) *domain.ScoreRecord {
	return &domain.ScoreRecord{
		RowID:     uuid.New(),
		VehicleID: vehicleID,
		Scores:    bundle,
		ValidFrom: runDate,
		ValidTo:   nil,
		IsLatest:  true,
		ScrapedAt: scrapedAt,
	}
}
