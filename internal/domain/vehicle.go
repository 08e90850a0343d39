package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleStatus is the lifecycle state of a listing.
type VehicleStatus string

const (
	// StatusActive marks a vehicle currently present in the source inventory.
	StatusActive VehicleStatus = "active"
	// StatusSold marks a vehicle that disappeared from the inventory.
	// A sold version is terminal for its identifier.
	StatusSold VehicleStatus = "sold"
)

// VehicleSnapshot is one vehicle as observed in a single scraping run.
type VehicleSnapshot struct {
	VehicleID        int64 // source listing identifier, unique within a run
	ModelName        string
	Price            decimal.Decimal // currency-normalized
	Kilometers       int             // odometer reading
	RegistrationDate *time.Time      // first registration, nil if unknown
	PowerKW          *int
	PowerPS          *int
	BatteryRangeKM   *int // electric vehicles only
	Equipment        []EquipmentItem
	Link             string
	ScrapedAt        time.Time // run timestamp
}

// VehicleRecord is one SCD Type 2 version of a vehicle's attribute row.
// Corresponds to the vehicle_history table.
type VehicleRecord struct {
	RowID            uuid.UUID
	VehicleID        int64
	ModelName        string
	Price            decimal.Decimal
	Kilometers       int
	RegistrationDate *time.Time
	PowerKW          *int
	PowerPS          *int
	BatteryRangeKM   *int
	Link             string
	FirstSeen        time.Time
	LastSeen         time.Time
	ValidFrom        time.Time
	ValidTo          *time.Time // nil = open interval
	IsLatest         bool
	Status           VehicleStatus
	ScrapedAt        time.Time
}

// SameAttributes reports whether the snapshot matches this version on all
// tracked columns. Link and timestamps are not tracked.
func (r *VehicleRecord) SameAttributes(s *VehicleSnapshot) bool {
	if r.ModelName != s.ModelName {
		return false
	}
	if !r.Price.Equal(s.Price) {
		return false
	}
	if r.Kilometers != s.Kilometers {
		return false
	}
	if !equalTimePtr(r.RegistrationDate, s.RegistrationDate) {
		return false
	}
	if !equalIntPtr(r.PowerKW, s.PowerKW) {
		return false
	}
	if !equalIntPtr(r.PowerPS, s.PowerPS) {
		return false
	}
	if !equalIntPtr(r.BatteryRangeKM, s.BatteryRangeKM) {
		return false
	}
	return true
}

// SameVersion reports whether two rows describe the same version: same
// validity start, same status and same tracked attributes. Used to tell an
// idempotent re-insert apart from a conflicting row under the same key.
func (r *VehicleRecord) SameVersion(other *VehicleRecord) bool {
	if !r.ValidFrom.Equal(other.ValidFrom) || r.Status != other.Status {
		return false
	}
	return r.ModelName == other.ModelName &&
		r.Price.Equal(other.Price) &&
		r.Kilometers == other.Kilometers &&
		equalTimePtr(r.RegistrationDate, other.RegistrationDate) &&
		equalIntPtr(r.PowerKW, other.PowerKW) &&
		equalIntPtr(r.PowerPS, other.PowerPS) &&
		equalIntPtr(r.BatteryRangeKM, other.BatteryRangeKM)
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
