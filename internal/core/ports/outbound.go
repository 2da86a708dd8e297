package ports

import (
	"context"

	"github.com/lendstack/docpack/internal/core/domain"
)

// ChunkRequest is one sequential piece of a file transfer. Index is 1-based;
// the backend assembles the file strictly by chunk order.
type ChunkRequest struct {
	Data        []byte
	Index       int
	TotalChunks int
	FileName    string
	Context     domain.UploadContext
}

// TransferBackend is the network contract the engine requires of the document
// backend. LinkUpload is idempotent server-side.
type TransferBackend interface {
	UploadChunk(ctx context.Context, req ChunkRequest) error
	LinkUpload(ctx context.Context, fileName, slotID string) error
}

// SnapshotStore persists hierarchy snapshots. The autosave alias is a single
// mutable pointer; versioned snapshots are append-only and independently
// addressable.
type SnapshotStore interface {
	SaveAutosave(ctx context.Context, snap domain.Snapshot) error
	SaveVersion(ctx context.Context, snap domain.Snapshot) (string, error)
	LoadAutosave(ctx context.Context) (*domain.Snapshot, error)
	LoadLatestVersion(ctx context.Context) (*domain.Snapshot, error)
}

// SnapshotExporter writes a snapshot to an external, user-visible location.
type SnapshotExporter interface {
	Export(ctx context.Context, snap domain.Snapshot) (string, error)
}

// EventPublisher hands completed uploads to the downstream processing
// pipeline, which is outside this engine.
type EventPublisher interface {
	PublishUploadCompleted(ctx context.Context, documentID string) error
	SubscribeUploadCompleted(ctx context.Context, handler func(context.Context, string) error) error
}

// RetryScheduler runs an operation with bounded backoff between attempts.
// Only transient failures are retried; the last error surfaces once attempts
// are exhausted.
type RetryScheduler interface {
	Run(ctx context.Context, operation string, fn func(context.Context) error) error
}

// FormatProbe inspects file content beyond extension/MIME checks.
type FormatProbe interface {
	Probe(name string, data []byte) error
}

// ReportBuilder renders a completion report for the current tree.
type ReportBuilder interface {
	BuildCompletionReport(categories []*domain.Category, completions map[string]domain.CompletionStatus) ([]byte, error)
}
