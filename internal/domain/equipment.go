package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EquipmentItem is one equipment entry of a vehicle, tagged with its category.
type EquipmentItem struct {
	Category string
	Name     string
}

// Key returns the normalized identity of the item. Identity is case- and
// whitespace-insensitive so textual inconsistencies in the source do not
// create spurious history versions.
func (i EquipmentItem) Key() EquipmentKey {
	return EquipmentKey{
		Category: NormalizeEquipmentText(i.Category),
		Name:     NormalizeEquipmentText(i.Name),
	}
}

// EquipmentKey identifies an equipment item within one vehicle.
type EquipmentKey struct {
	Category string
	Name     string
}

// NormalizeEquipmentText lowercases and collapses whitespace.
func NormalizeEquipmentText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// EquipmentRecord is one SCD Type 2 version of a vehicle's equipment item.
// Several records may be open concurrently for one vehicle: equipment is a
// set-valued relation, not a scalar.
type EquipmentRecord struct {
	RowID     uuid.UUID
	VehicleID int64
	Category  string
	Name      string
	ValidFrom time.Time
	ValidTo   *time.Time // nil = open interval
	IsLatest  bool
	ScrapedAt time.Time
}

// Key returns the normalized identity of the recorded item.
func (r *EquipmentRecord) Key() EquipmentKey {
	return EquipmentItem{Category: r.Category, Name: r.Name}.Key()
}

// OpenAt reports whether the record's validity interval covers t,
// i.e. valid_from <= t < valid_to (open-ended when valid_to is nil).
func (r *EquipmentRecord) OpenAt(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || t.Before(*r.ValidTo)
}
