package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lotwatch/internal/domain"
	"lotwatch/internal/storage"
)

// versionKey is the logical identity of one vehicle version.
type versionKey struct {
	vehicleID int64
	validFrom time.Time
	status    domain.VehicleStatus
}

// VehicleHistoryStore is an in-memory implementation of
// storage.VehicleHistoryStore.
type VehicleHistoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*domain.VehicleRecord
	keys map[versionKey]uuid.UUID
}

// NewVehicleHistoryStore creates a new in-memory vehicle history store.
func NewVehicleHistoryStore() *VehicleHistoryStore {
	return &VehicleHistoryStore{
		rows: make(map[uuid.UUID]*domain.VehicleRecord),
		keys: make(map[versionKey]uuid.UUID),
	}
}

// Compile-time interface check.
var _ storage.VehicleHistoryStore = (*VehicleHistoryStore)(nil)

// InsertVersion adds a new version. Returns ErrDuplicateKey if a version with
// the same (vehicle_id, valid_from, status) exists.
func (s *VehicleHistoryStore) InsertVersion(_ context.Context, r *domain.VehicleRecord) error {
	if r == nil || r.VehicleID <= 0 || r.RowID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := versionKey{r.VehicleID, r.ValidFrom, r.Status}
	if _, exists := s.keys[key]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.rows[r.RowID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	rowCopy := *r
	s.rows[r.RowID] = &rowCopy
	s.keys[key] = r.RowID
	return nil
}

// CloseVersion sets valid_to and clears is_latest. Idempotent for rows that
// are already closed.
func (s *VehicleHistoryStore) CloseVersion(_ context.Context, rowID uuid.UUID, validTo time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rows[rowID]
	if !exists {
		return storage.ErrNotFound
	}
	if !r.IsLatest {
		return nil
	}
	t := validTo
	r.ValidTo = &t
	r.IsLatest = false
	return nil
}

// TouchLastSeen updates last_seen_date and scraped_at in place.
func (s *VehicleHistoryStore) TouchLastSeen(_ context.Context, rowID uuid.UUID, lastSeen, scrapedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rows[rowID]
	if !exists {
		return storage.ErrNotFound
	}
	r.LastSeen = lastSeen
	r.ScrapedAt = scrapedAt
	return nil
}

// GetLatest retrieves all is_latest rows, ordered by vehicle_id ASC.
func (s *VehicleHistoryStore) GetLatest(_ context.Context) ([]*domain.VehicleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VehicleRecord
	for _, r := range s.rows {
		if r.IsLatest {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].VehicleID < result[j].VehicleID
	})
	return result, nil
}

// GetByVehicleID retrieves a vehicle's full version chain, valid_from ASC.
func (s *VehicleHistoryStore) GetByVehicleID(_ context.Context, vehicleID int64) ([]*domain.VehicleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VehicleRecord
	for _, r := range s.rows {
		if r.VehicleID == vehicleID {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ValidFrom.Equal(result[j].ValidFrom) {
			return result[i].ValidFrom.Before(result[j].ValidFrom)
		}
		// A close and a sold reopen can share a date; the closed row sorts first.
		return result[i].ValidTo != nil && result[j].ValidTo == nil
	})
	return result, nil
}
