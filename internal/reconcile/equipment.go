package reconcile

import (
	"time"

	"github.com/google/uuid"

	"lotwatch/internal/domain"
)

// ReconcileEquipment versions the set-valued equipment relation for one
// vehicle by set difference against the currently open items. Items present
// on both sides are left untouched; appearing items open a new version,
// disappearing items close theirs.
func ReconcileEquipment(
	vehicleID int64,
	current map[domain.EquipmentKey]*domain.EquipmentRecord,
	items []domain.EquipmentItem,
	runDate time.Time,
	scrapedAt time.Time,
	batch *Batch,
) {
	seen := make(map[domain.EquipmentKey]struct{}, len(items))

	for _, item := range items {
		key := item.Key()
		if key.Name == "" {
			continue
		}
		// Duplicates within one snapshot collapse to a single record.
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, open := current[key]; open {
			continue
		}
		batch.EquipmentInserts = append(batch.EquipmentInserts, &domain.EquipmentRecord{
			RowID:     uuid.New(),
			VehicleID: vehicleID,
			Category:  item.Category,
			Name:      item.Name,
			ValidFrom: runDate,
			ValidTo:   nil,
			IsLatest:  true,
			ScrapedAt: scrapedAt,
		})
	}

	for key, rec := range current {
		if _, still := seen[key]; still {
			continue
		}
		batch.EquipmentCloses = append(batch.EquipmentCloses, RowClose{RowID: rec.RowID, ValidTo: runDate})
	}
}

// CloseAllEquipment closes every open equipment row of a vehicle. Used when
// the vehicle leaves the inventory, so that the point-in-time reconstruction
// of its equipment matches the lot: nothing is on it after the sold date.
func CloseAllEquipment(current map[domain.EquipmentKey]*domain.EquipmentRecord, runDate time.Time, batch *Batch) {
	for _, rec := range current {
		batch.EquipmentCloses = append(batch.EquipmentCloses, RowClose{RowID: rec.RowID, ValidTo: runDate})
	}
}
