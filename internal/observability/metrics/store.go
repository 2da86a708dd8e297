package metrics

import (
	"context"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
)

// InstrumentedSnapshotStore counts autosave outcomes without the persistence
// layer knowing about metrics.
type InstrumentedSnapshotStore struct {
	inner   ports.SnapshotStore
	metrics *UploadMetrics
}

func InstrumentSnapshotStore(inner ports.SnapshotStore, metrics *UploadMetrics) *InstrumentedSnapshotStore {
	return &InstrumentedSnapshotStore{inner: inner, metrics: metrics}
}

func (s *InstrumentedSnapshotStore) SaveAutosave(ctx context.Context, snap domain.Snapshot) error {
	err := s.inner.SaveAutosave(ctx, snap)
	if s.metrics != nil {
		s.metrics.ObserveAutosave(err)
	}
	return err
}

func (s *InstrumentedSnapshotStore) SaveVersion(ctx context.Context, snap domain.Snapshot) (string, error) {
	return s.inner.SaveVersion(ctx, snap)
}

func (s *InstrumentedSnapshotStore) LoadAutosave(ctx context.Context) (*domain.Snapshot, error) {
	return s.inner.LoadAutosave(ctx)
}

func (s *InstrumentedSnapshotStore) LoadLatestVersion(ctx context.Context) (*domain.Snapshot, error) {
	return s.inner.LoadLatestVersion(ctx)
}
