// Package bootstrap wires the engine together: persistence, transfer,
// messaging, resilience and the core services, in dependency order.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lendstack/docpack/internal/config"
	"github.com/lendstack/docpack/internal/core/ports"
	"github.com/lendstack/docpack/internal/core/usecase"
	"github.com/lendstack/docpack/internal/infrastructure/inspect/pdfprobe"
	"github.com/lendstack/docpack/internal/infrastructure/queue/nats"
	"github.com/lendstack/docpack/internal/infrastructure/report/excel"
	"github.com/lendstack/docpack/internal/infrastructure/repository/postgres"
	"github.com/lendstack/docpack/internal/infrastructure/resilience"
	"github.com/lendstack/docpack/internal/infrastructure/rules"
	"github.com/lendstack/docpack/internal/infrastructure/storage/localfs"
	"github.com/lendstack/docpack/internal/infrastructure/transfer/httpapi"
	"github.com/lendstack/docpack/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Hierarchy *usecase.HierarchyManager
	Uploads   *usecase.ChunkedUploadController
	Snapshots *usecase.SnapshotManager
	Validator *usecase.ValidationEngine
	RuleSet   rules.RuleSet
	Report    ports.ReportBuilder

	Store         ports.SnapshotStore
	Queue         *nats.Queue
	ServerMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSnapshotRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	uploadMetrics := metrics.NewUploadMetrics(serverMetrics.Registry())
	store := metrics.InstrumentSnapshotStore(repo, uploadMetrics)

	exporter, err := localfs.NewExporter(cfg.ExportPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: nats.NewPublishExecutor(resilience.Config{
			RetryMaxAttempts:    cfg.RetryMaxAttempts,
			RetryInitialBackoff: cfg.RetryInitialBackoff,
			RetryMaxBackoff:     cfg.RetryMaxBackoff,
			BreakerEnabled:      true,
		}),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ruleSet, err := rules.Load(cfg.RulesPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load validation rules: %w", err)
	}

	backend := httpapi.New(cfg.TransferBaseURL).
		WithChunkCounter(uploadMetrics.ChunkCounter())
	scheduler := resilience.NewScheduler(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		BreakerEnabled:      true,
	}).WithRetryCounter(uploadMetrics.RetryCounter())

	hierarchy := usecase.NewHierarchyManager(logger)
	autosaver := usecase.NewAutosaver(store, cfg.AutosaveWindow, logger)
	hierarchy.SetObserver(autosaver)
	hierarchy.SetPublisher(queue)

	snapshots := usecase.NewSnapshotManager(store, exporter, hierarchy, logger)
	if snap, err := snapshots.LoadLatest(ctx); err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("recover snapshot: %w", err)
	} else if snap != nil {
		hierarchy.Restore(*snap)
		logger.Info("hierarchy restored", "snapshot_id", snap.ID, "kind", snap.Kind)
	}

	uploads := usecase.NewChunkedUploadController(
		backend, hierarchy, scheduler, logger,
		cfg.ChunkSize, cfg.SingleShotThreshold,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Hierarchy: hierarchy,
		Uploads:   uploads,
		Snapshots: snapshots,
		Validator: usecase.NewValidationEngine(pdfprobe.New()),
		RuleSet:   ruleSet,
		Report:    excel.New(),

		Store:         store,
		Queue:         queue,
		ServerMetrics: serverMetrics,

		closeFn: func() {
			autosaver.Close()
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
