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

// scoreVersionKey is the logical identity of one score version.
type scoreVersionKey struct {
	vehicleID int64
	validFrom time.Time
}

// ScoreHistoryStore is an in-memory implementation of
// storage.ScoreHistoryStore.
type ScoreHistoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*domain.ScoreRecord
	keys map[scoreVersionKey]uuid.UUID
}

// NewScoreHistoryStore creates a new in-memory score history store.
func NewScoreHistoryStore() *ScoreHistoryStore {
	return &ScoreHistoryStore{
		rows: make(map[uuid.UUID]*domain.ScoreRecord),
		keys: make(map[scoreVersionKey]uuid.UUID),
	}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

// InsertVersion adds a new version. Returns ErrDuplicateKey if a version with
// the same (vehicle_id, valid_from) exists.
func (s *ScoreHistoryStore) InsertVersion(_ context.Context, r *domain.ScoreRecord) error {
	if r == nil || r.VehicleID <= 0 || r.RowID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := scoreVersionKey{r.VehicleID, r.ValidFrom}
	if _, exists := s.keys[key]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.rows[r.RowID]; exists {
		return storage.ErrDuplicateKey
	}

	rowCopy := *r
	s.rows[r.RowID] = &rowCopy
	s.keys[key] = r.RowID
	return nil
}

// CloseVersion sets valid_to and clears is_latest. Idempotent for rows that
// are already closed.
func (s *ScoreHistoryStore) CloseVersion(_ context.Context, rowID uuid.UUID, validTo time.Time) error {
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

// TouchScrapedAt refreshes scraped_at in place.
func (s *ScoreHistoryStore) TouchScrapedAt(_ context.Context, rowID uuid.UUID, scrapedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rows[rowID]
	if !exists {
		return storage.ErrNotFound
	}
	r.ScrapedAt = scrapedAt
	return nil
}

// GetLatest retrieves all is_latest rows, ordered by vehicle_id ASC.
func (s *ScoreHistoryStore) GetLatest(_ context.Context) ([]*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreRecord
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

// GetByVehicleID retrieves a vehicle's full score chain, valid_from ASC.
func (s *ScoreHistoryStore) GetByVehicleID(_ context.Context, vehicleID int64) ([]*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreRecord
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
		return result[i].ValidTo != nil && result[j].ValidTo == nil
	})
	return result, nil
}
