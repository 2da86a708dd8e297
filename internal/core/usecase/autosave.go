package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
)

// Autosaver debounces hierarchy snapshots: a burst of mutations within the
// quiescence window produces exactly one write, reflecting the final state.
// The timer is reset on every notification, never merely extended. Write
// failures are logged and swallowed so interaction is never blocked.
type Autosaver struct {
	store  ports.SnapshotStore
	window time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *domain.Snapshot
	closed  bool
}

const defaultAutosaveWindow = time.Second

func NewAutosaver(store ports.SnapshotStore, window time.Duration, logger *slog.Logger) *Autosaver {
	if window <= 0 {
		window = defaultAutosaveWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{
		store:  store,
		window: window,
		logger: logger,
	}
}

// Notify replaces any pending snapshot and restarts the quiescence timer.
func (a *Autosaver) Notify(snap domain.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.pending = &snap
	if a.timer == nil {
		a.timer = time.AfterFunc(a.window, a.flush)
		return
	}
	a.timer.Stop()
	a.timer.Reset(a.window)
}

// Flush writes any pending snapshot immediately.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	a.flush()
}

// Close stops the timer and flushes the last pending snapshot.
func (a *Autosaver) Close() {
	a.Flush()
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

func (a *Autosaver) flush() {
	a.mu.Lock()
	snap := a.pending
	a.pending = nil
	a.mu.Unlock()

	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.store.SaveAutosave(ctx, *snap); err != nil {
		a.logger.Warn("autosave failed", "package_id", snap.PackageID, "error", err)
	}
}

// SnapshotManager handles explicit versioned saves, export, and recovery.
type SnapshotManager struct {
	store    ports.SnapshotStore
	exporter ports.SnapshotExporter
	tree     *HierarchyManager
	logger   *slog.Logger
}

func NewSnapshotManager(store ports.SnapshotStore, exporter ports.SnapshotExporter, tree *HierarchyManager, logger *slog.Logger) *SnapshotManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotManager{
		store:    store,
		exporter: exporter,
		tree:     tree,
		logger:   logger,
	}
}

// SaveVersion writes an immutable, independently addressable snapshot and
// refreshes the autosave alias with the same state. Unlike autosave,
// failures here surface to the caller.
func (s *SnapshotManager) SaveVersion(ctx context.Context) (string, error) {
	snap := s.tree.Snapshot(domain.SnapshotVersion)

	versionID, err := s.store.SaveVersion(ctx, snap)
	if err != nil {
		return "", domain.WrapError(domain.ErrPersistence, "save version", err)
	}

	alias := snap
	alias.Kind = domain.SnapshotAutosave
	if err := s.store.SaveAutosave(ctx, alias); err != nil {
		return "", domain.WrapError(domain.ErrPersistence, "refresh autosave alias", err)
	}

	if s.exporter != nil {
		path, err := s.exporter.Export(ctx, snap)
		if err != nil {
			return "", domain.WrapError(domain.ErrPersistence, "export snapshot", err)
		}
		s.logger.Info("snapshot exported", "version_id", versionID, "path", path)
	}

	return versionID, nil
}

// LoadLatest prefers the autosave alias and falls back to the most recent
// versioned snapshot. A corrupt or missing snapshot yields (nil, nil) so the
// caller starts from an empty hierarchy instead of failing.
func (s *SnapshotManager) LoadLatest(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := s.store.LoadAutosave(ctx)
	if err == nil && snap != nil {
		return snap, nil
	}
	if err != nil && !recoverableLoadError(err) {
		return nil, domain.WrapError(domain.ErrPersistence, "load autosave", err)
	}
	if err != nil {
		s.logger.Warn("autosave unreadable, falling back to versions", "error", err)
	}

	snap, err = s.store.LoadLatestVersion(ctx)
	if err == nil {
		return snap, nil
	}
	if recoverableLoadError(err) {
		s.logger.Warn("no usable snapshot, starting empty", "error", err)
		return nil, nil
	}
	return nil, domain.WrapError(domain.ErrPersistence, "load latest version", err)
}

// recoverableLoadError reports whether a load failure means "start empty"
// rather than "stop": absent rows and unparseable payloads both qualify.
func recoverableLoadError(err error) bool {
	return domain.IsKind(err, domain.ErrNotFound) || domain.IsKind(err, domain.ErrPersistence)
}
