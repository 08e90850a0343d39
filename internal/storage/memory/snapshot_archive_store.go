package memory

import (
	"context"
	"sync"
	"time"

	"lotwatch/internal/domain"
	"lotwatch/internal/storage"
)

// SnapshotArchiveStore is an in-memory implementation of
// storage.SnapshotArchiveStore, used in tests and dry runs.
type SnapshotArchiveStore struct {
	mu   sync.RWMutex
	rows []*domain.SnapshotRow
}

// NewSnapshotArchiveStore creates a new in-memory snapshot archive.
func NewSnapshotArchiveStore() *SnapshotArchiveStore {
	return &SnapshotArchiveStore{}
}

// Compile-time interface check.
var _ storage.SnapshotArchiveStore = (*SnapshotArchiveStore)(nil)

// InsertBulk appends all rows of one run.
func (s *SnapshotArchiveStore) InsertBulk(_ context.Context, rows []*domain.SnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil || r.VehicleID <= 0 {
			return storage.ErrInvalidInput
		}
		rowCopy := *r
		s.rows = append(s.rows, &rowCopy)
	}
	return nil
}

// CountByRunDate returns the number of archived rows for a run date.
func (s *SnapshotArchiveStore) CountByRunDate(_ context.Context, runDate time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.rows {
		if r.RunDate.Equal(runDate) {
			n++
		}
	}
	return n, nil
}
