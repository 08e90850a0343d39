// Package scraper provides snapshot sources for the reconciliation pipeline.
package scraper

import (
	"context"

	"lotwatch/internal/domain"
)

// SnapshotSource produces one full inventory snapshot per call. A snapshot is
// authoritative for the run: vehicles absent from it are treated as sold.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) ([]*domain.VehicleSnapshot, error)
}

// StubSource serves a fixed snapshot, for tests and dry runs.
type StubSource struct {
	Snapshots []*domain.VehicleSnapshot
	Err       error
}

// FetchSnapshot returns the configured snapshot or error.
func (s *StubSource) FetchSnapshot(_ context.Context) ([]*domain.VehicleSnapshot, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Snapshots, nil
}

// Compile-time interface checks.
var (
	_ SnapshotSource = (*StubSource)(nil)
	_ SnapshotSource = (*InventoryClient)(nil)
)
