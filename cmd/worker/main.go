package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lendstack/docpack/internal/bootstrap"
	"github.com/lendstack/docpack/internal/config"
	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/observability/logging"
	"github.com/lendstack/docpack/internal/observability/metrics"
)

// The worker turns completed uploads into durable checkpoints: each event
// promotes the current autosave alias to an immutable versioned snapshot.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", workerMetrics.Handler())
		addr := ":" + cfg.WorkerMetricsPort
		log.Printf("worker metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeUploadCompleted(ctx, func(handlerCtx context.Context, documentID string) error {
		checkpointCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
		defer cancel()

		start := time.Now()
		err := checkpoint(checkpointCtx, app, documentID)
		workerMetrics.FinishCheckpoint("worker", time.Since(start), err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func checkpoint(ctx context.Context, app *bootstrap.App, documentID string) error {
	snap, err := app.Store.LoadAutosave(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			slog.Warn("no autosave to checkpoint", "document_id", documentID)
			return nil
		}
		return fmt.Errorf("load autosave: %w", err)
	}
	if snap == nil {
		return errors.New("autosave load returned no snapshot")
	}

	version := *snap
	version.ID = uuid.NewString()
	version.Kind = domain.SnapshotVersion

	versionID, err := app.Store.SaveVersion(ctx, version)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	slog.Info("checkpoint saved", "document_id", documentID, "version_id", versionID)
	return nil
}
