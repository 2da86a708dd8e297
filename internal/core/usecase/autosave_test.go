package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lendstack/docpack/internal/core/domain"
)

type storeFake struct {
	mu        sync.Mutex
	autosaves []domain.Snapshot
	versions  []domain.Snapshot

	autosaveErr    error
	loadAutoErr    error
	loadVersionErr error
	loadAuto       *domain.Snapshot
	loadVersion    *domain.Snapshot
}

func (s *storeFake) SaveAutosave(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autosaveErr != nil {
		return s.autosaveErr
	}
	s.autosaves = append(s.autosaves, snap)
	return nil
}

func (s *storeFake) SaveVersion(_ context.Context, snap domain.Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = append(s.versions, snap)
	return snap.ID, nil
}

func (s *storeFake) LoadAutosave(context.Context) (*domain.Snapshot, error) {
	return s.loadAuto, s.loadAutoErr
}

func (s *storeFake) LoadLatestVersion(context.Context) (*domain.Snapshot, error) {
	return s.loadVersion, s.loadVersionErr
}

func (s *storeFake) autosaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.autosaves)
}

func (s *storeFake) lastAutosave() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autosaves[len(s.autosaves)-1]
}

type exporterFake struct {
	exported []domain.Snapshot
	err      error
}

func (e *exporterFake) Export(_ context.Context, snap domain.Snapshot) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.exported = append(e.exported, snap)
	return "/exports/" + snap.ID + ".json", nil
}

func snapshotWithID(id string) domain.Snapshot {
	return domain.Snapshot{ID: id, PackageID: "pkg-1", Kind: domain.SnapshotAutosave}
}

func TestAutosaverCoalescesBurstIntoOneWrite(t *testing.T) {
	store := &storeFake{}
	saver := NewAutosaver(store, 40*time.Millisecond, nil)
	defer saver.Close()

	for i := 0; i < 5; i++ {
		saver.Notify(snapshotWithID(string(rune('a' + i))))
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(120 * time.Millisecond)

	if got := store.autosaveCount(); got != 1 {
		t.Fatalf("expected exactly one write for a burst, got %d", got)
	}
	if last := store.lastAutosave(); last.ID != "e" {
		t.Fatalf("the single write must hold the final state, got %s", last.ID)
	}
}

func TestAutosaverTimerResetDefersTheWrite(t *testing.T) {
	store := &storeFake{}
	saver := NewAutosaver(store, 50*time.Millisecond, nil)
	defer saver.Close()

	saver.Notify(snapshotWithID("a"))
	time.Sleep(30 * time.Millisecond)
	if got := store.autosaveCount(); got != 0 {
		t.Fatalf("write fired before the window elapsed: %d", got)
	}

	// A second notification inside the window restarts it from zero.
	saver.Notify(snapshotWithID("b"))
	time.Sleep(30 * time.Millisecond)
	if got := store.autosaveCount(); got != 0 {
		t.Fatalf("reset timer fired early: %d writes", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := store.autosaveCount(); got != 1 {
		t.Fatalf("expected one write after quiescence, got %d", got)
	}
}

func TestAutosaverFlushWritesImmediately(t *testing.T) {
	store := &storeFake{}
	saver := NewAutosaver(store, time.Hour, nil)

	saver.Notify(snapshotWithID("a"))
	saver.Flush()

	if got := store.autosaveCount(); got != 1 {
		t.Fatalf("expected immediate write on flush, got %d", got)
	}
}

func TestAutosaverSwallowsWriteFailures(t *testing.T) {
	store := &storeFake{autosaveErr: errors.New("disk full")}
	saver := NewAutosaver(store, time.Hour, nil)

	saver.Notify(snapshotWithID("a"))
	saver.Flush()
	// No panic, no error surfaced: interaction is never blocked on autosave.
}

func TestSaveVersionPersistsExportsAndRefreshesAlias(t *testing.T) {
	store := &storeFake{}
	exporter := &exporterFake{}
	tree := newTestManager()
	seedProduct(t, tree)

	manager := NewSnapshotManager(store, exporter, tree, nil)
	versionID, err := manager.SaveVersion(context.Background())
	if err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}
	if versionID == "" {
		t.Fatal("expected a version id")
	}
	if len(store.versions) != 1 {
		t.Fatalf("expected one versioned snapshot, got %d", len(store.versions))
	}
	if store.autosaveCount() != 1 {
		t.Fatalf("expected the autosave alias refreshed, got %d writes", store.autosaveCount())
	}
	if store.lastAutosave().Kind != domain.SnapshotAutosave {
		t.Fatal("alias refresh must be stored under the autosave kind")
	}
	if len(exporter.exported) != 1 {
		t.Fatalf("expected one export, got %d", len(exporter.exported))
	}
}

func TestSaveVersionSurfacesExportFailure(t *testing.T) {
	store := &storeFake{}
	tree := newTestManager()
	seedProduct(t, tree)

	manager := NewSnapshotManager(store, &exporterFake{err: errors.New("read-only fs")}, tree, nil)
	_, err := manager.SaveVersion(context.Background())
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestLoadLatestPrefersAutosave(t *testing.T) {
	auto := snapshotWithID("auto")
	version := snapshotWithID("version")
	store := &storeFake{loadAuto: &auto, loadVersion: &version}

	manager := NewSnapshotManager(store, nil, newTestManager(), nil)
	snap, err := manager.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if snap.ID != "auto" {
		t.Fatalf("expected the autosave alias preferred, got %s", snap.ID)
	}
}

func TestLoadLatestFallsBackToVersionOnCorruptAutosave(t *testing.T) {
	version := snapshotWithID("version")
	store := &storeFake{
		loadAutoErr: domain.WrapError(domain.ErrPersistence, "load autosave", errors.New("unexpected end of JSON input")),
		loadVersion: &version,
	}

	manager := NewSnapshotManager(store, nil, newTestManager(), nil)
	snap, err := manager.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if snap == nil || snap.ID != "version" {
		t.Fatalf("expected version fallback, got %+v", snap)
	}
}

func TestLoadLatestStartsEmptyWhenNothingUsable(t *testing.T) {
	store := &storeFake{
		loadAutoErr:    domain.WrapError(domain.ErrNotFound, "load autosave", errors.New("no rows")),
		loadVersionErr: domain.WrapError(domain.ErrNotFound, "load latest version", errors.New("no rows")),
	}

	manager := NewSnapshotManager(store, nil, newTestManager(), nil)
	snap, err := manager.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("a missing snapshot is not an error: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot to start empty, got %+v", snap)
	}
}
