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

// equipmentVersionKey is the logical identity of one equipment version.
type equipmentVersionKey struct {
	vehicleID int64
	item      domain.EquipmentKey
	validFrom time.Time
}

// EquipmentHistoryStore is an in-memory implementation of
// storage.EquipmentHistoryStore.
type EquipmentHistoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*domain.EquipmentRecord
	keys map[equipmentVersionKey]uuid.UUID
}

// NewEquipmentHistoryStore creates a new in-memory equipment history store.
func NewEquipmentHistoryStore() *EquipmentHistoryStore {
	return &EquipmentHistoryStore{
		rows: make(map[uuid.UUID]*domain.EquipmentRecord),
		keys: make(map[equipmentVersionKey]uuid.UUID),
	}
}

// Compile-time interface check.
var _ storage.EquipmentHistoryStore = (*EquipmentHistoryStore)(nil)

// InsertVersions adds multiple versions. Fails the entire batch with
// ErrDuplicateKey on any duplicate.
func (s *EquipmentHistoryStore) InsertVersions(_ context.Context, records []*domain.EquipmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch first so a failure leaves the store untouched.
	seen := make(map[equipmentVersionKey]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.VehicleID <= 0 || r.RowID == uuid.Nil {
			return storage.ErrInvalidInput
		}
		key := equipmentVersionKey{r.VehicleID, r.Key(), r.ValidFrom}
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.rows[r.RowID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, r := range records {
		rowCopy := *r
		s.rows[r.RowID] = &rowCopy
		s.keys[equipmentVersionKey{r.VehicleID, r.Key(), r.ValidFrom}] = r.RowID
	}
	return nil
}

// CloseVersion sets valid_to and clears is_latest. Idempotent for rows that
// are already closed.
func (s *EquipmentHistoryStore) CloseVersion(_ context.Context, rowID uuid.UUID, validTo time.Time) error {
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

// GetLatest retrieves all is_latest rows, ordered by vehicle_id, category,
// name ASC.
func (s *EquipmentHistoryStore) GetLatest(_ context.Context) ([]*domain.EquipmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquipmentRecord
	for _, r := range s.rows {
		if r.IsLatest {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sortEquipment(result)
	return result, nil
}

// GetByVehicleID retrieves a vehicle's full equipment history.
func (s *EquipmentHistoryStore) GetByVehicleID(_ context.Context, vehicleID int64) ([]*domain.EquipmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquipmentRecord
	for _, r := range s.rows {
		if r.VehicleID == vehicleID {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sortEquipment(result)
	return result, nil
}

// GetAsOf retrieves the rows whose validity interval covers t.
func (s *EquipmentHistoryStore) GetAsOf(_ context.Context, vehicleID int64, t time.Time) ([]*domain.EquipmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquipmentRecord
	for _, r := range s.rows {
		if r.VehicleID == vehicleID && r.OpenAt(t) {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sortEquipment(result)
	return result, nil
}

func sortEquipment(records []*domain.EquipmentRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.VehicleID != b.VehicleID {
			return a.VehicleID < b.VehicleID
		}
		if !a.ValidFrom.Equal(b.ValidFrom) {
			return a.ValidFrom.Before(b.ValidFrom)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Name < b.Name
	})
}
