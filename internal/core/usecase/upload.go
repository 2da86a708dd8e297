package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
)

// ChunkedUploadController transfers files to the backend one at a time. The
// backend assembles files by chunk order, so chunks go out strictly
// sequentially, never in parallel. A failed chunk aborts the session without
// committing a document; the expected slot stays unfulfilled.
type ChunkedUploadController struct {
	backend   ports.TransferBackend
	hierarchy ports.HierarchyService
	retry     ports.RetryScheduler
	logger    *slog.Logger

	chunkSize      int64
	chunkThreshold int64

	mu        sync.Mutex
	sessions  map[string]*trackedSession
	queue     chan string
	retention time.Duration

	now   func() time.Time
	newID func() string
}

type trackedSession struct {
	session domain.UploadSession
	data    []byte
	file    domain.FileMeta
}

const (
	defaultQueueDepth       = 64
	defaultSessionRetention = 5 * time.Minute
)

func NewChunkedUploadController(
	backend ports.TransferBackend,
	hierarchy ports.HierarchyService,
	retry ports.RetryScheduler,
	logger *slog.Logger,
	chunkSize, chunkThreshold int64,
) *ChunkedUploadController {
	if logger == nil {
		logger = slog.Default()
	}
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	if chunkThreshold <= 0 {
		chunkThreshold = chunkSize
	}
	return &ChunkedUploadController{
		backend:        backend,
		hierarchy:      hierarchy,
		retry:          retry,
		logger:         logger,
		chunkSize:      chunkSize,
		chunkThreshold: chunkThreshold,
		sessions:       make(map[string]*trackedSession),
		queue:          make(chan string, defaultQueueDepth),
		retention:      defaultSessionRetention,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
}

// Start launches the single transfer worker. Files queue in FIFO order and
// move one at a time; within a file, chunks are sequential by construction.
func (c *ChunkedUploadController) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-c.queue:
				c.process(ctx, id)
			}
		}
	}()
}

// Enqueue registers a pending session for the file and queues its transfer.
func (c *ChunkedUploadController) Enqueue(ctx context.Context, file domain.FileMeta, data []byte, uploadCtx domain.UploadContext) (*domain.UploadSession, error) {
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "enqueue upload", errors.New("empty file"))
	}
	if file.Size != int64(len(data)) {
		return nil, domain.WrapError(domain.ErrValidation, "enqueue upload",
			fmt.Errorf("declared size %d does not match %d received bytes", file.Size, len(data)))
	}
	if uploadCtx.ProductID == "" {
		return nil, domain.WrapError(domain.ErrValidation, "enqueue upload", errors.New("product id is required"))
	}

	sess := domain.UploadSession{
		ID:          c.newID(),
		FileName:    file.Name,
		TotalSize:   file.Size,
		ChunkSize:   c.chunkSize,
		TotalChunks: domain.ChunkCount(file.Size, c.chunkSize),
		Status:      domain.SessionPending,
		Context:     uploadCtx,
		CreatedAt:   c.now(),
	}
	if file.Size < c.chunkThreshold {
		sess.TotalChunks = 1
	}

	c.mu.Lock()
	c.sessions[sess.ID] = &trackedSession{session: sess, data: data, file: file}
	c.mu.Unlock()

	select {
	case c.queue <- sess.ID:
	case <-ctx.Done():
		return nil, domain.WrapError(domain.ErrCancelled, "enqueue upload", ctx.Err())
	}

	copied := sess
	return &copied, nil
}

// Session returns a copy of the session state for progress polling.
func (c *ChunkedUploadController) Session(id string) (*domain.UploadSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tracked, ok := c.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "upload session", fmt.Errorf("session %s", id))
	}
	copied := tracked.session
	return &copied, nil
}

// Retry re-queues a permanently failed session. The attempt counter and
// stored error reset, so the automatic retry budget starts over.
func (c *ChunkedUploadController) Retry(ctx context.Context, id string) (*domain.UploadSession, error) {
	c.mu.Lock()
	tracked, ok := c.sessions[id]
	if !ok {
		c.mu.Unlock()
		return nil, domain.WrapError(domain.ErrNotFound, "retry upload", fmt.Errorf("session %s", id))
	}
	if tracked.session.Status != domain.SessionFailed {
		status := tracked.session.Status
		c.mu.Unlock()
		return nil, domain.WrapError(domain.ErrConflict, "retry upload",
			fmt.Errorf("session %s is %s, not failed", id, status))
	}
	tracked.session.Status = domain.SessionPending
	tracked.session.RetryCount = 0
	tracked.session.LastError = ""
	tracked.session.ChunkIndex = 0
	tracked.session.Progress = 0
	copied := tracked.session
	c.mu.Unlock()

	select {
	case c.queue <- id:
	case <-ctx.Done():
		return nil, domain.WrapError(domain.ErrCancelled, "retry upload", ctx.Err())
	}
	return &copied, nil
}

func (c *ChunkedUploadController) process(ctx context.Context, id string) {
	c.mu.Lock()
	tracked, ok := c.sessions[id]
	if !ok || tracked.session.Status == domain.SessionCompleted {
		c.mu.Unlock()
		return
	}
	tracked.session.Status = domain.SessionUploading
	data := tracked.data
	file := tracked.file
	sess := tracked.session
	c.mu.Unlock()

	attempt := 0
	run := func(runCtx context.Context) error {
		// Every attempt restarts from chunk 1: no partial resume across
		// retries, so the backend never sees divergent chunk offsets.
		c.updateSession(id, func(s *domain.UploadSession) {
			s.RetryCount = attempt
			s.ChunkIndex = 0
			s.Progress = 0
		})
		attempt++
		return c.transfer(runCtx, id, sess, file, data)
	}

	var err error
	if c.retry != nil {
		err = c.retry.Run(ctx, "upload.transfer", run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		reason := err
		if ctx.Err() != nil {
			reason = domain.WrapError(domain.ErrCancelled, "upload", ctx.Err())
		}
		c.logger.Warn("upload session failed", "session_id", id, "file", file.Name, "error", reason)
		c.updateSession(id, func(s *domain.UploadSession) {
			s.Status = domain.SessionFailed
			s.LastError = reason.Error()
		})
		return
	}

	if err := c.commit(ctx, sess, file); err != nil {
		c.logger.Warn("upload commit failed", "session_id", id, "file", file.Name, "error", err)
		c.updateSession(id, func(s *domain.UploadSession) {
			s.Status = domain.SessionFailed
			s.LastError = err.Error()
		})
		return
	}

	c.mu.Lock()
	if tracked, ok := c.sessions[id]; ok {
		tracked.session.Status = domain.SessionCompleted
		tracked.session.ChunkIndex = tracked.session.TotalChunks
		tracked.session.Progress = 100
		tracked.data = nil
	}
	c.mu.Unlock()
	c.scheduleEviction(id)
}

// scheduleEviction drops a completed session after a grace period so the
// map does not grow with every upload. Failed sessions stay around for
// manual retry and are only replaced by their own completion.
func (c *ChunkedUploadController) scheduleEviction(id string) {
	time.AfterFunc(c.retention, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if tracked, ok := c.sessions[id]; ok && tracked.session.Status == domain.SessionCompleted {
			delete(c.sessions, id)
		}
	})
}

// transfer moves the file's bytes. Small files go in one shot; everything
// else goes chunk by chunk with strictly increasing 1-based indices.
func (c *ChunkedUploadController) transfer(ctx context.Context, id string, sess domain.UploadSession, file domain.FileMeta, data []byte) error {
	if file.Size < c.chunkThreshold {
		if err := ctx.Err(); err != nil {
			return domain.WrapError(domain.ErrCancelled, "upload chunk", err)
		}
		if err := c.backend.UploadChunk(ctx, ports.ChunkRequest{
			Data:        data,
			Index:       1,
			TotalChunks: 1,
			FileName:    file.Name,
			Context:     sess.Context,
		}); err != nil {
			return fmt.Errorf("single-shot upload: %w", err)
		}
		c.updateSession(id, func(s *domain.UploadSession) {
			s.ChunkIndex = 1
			s.Progress = 100
		})
		return c.link(ctx, sess, file)
	}

	total := domain.ChunkCount(file.Size, c.chunkSize)
	for index := 1; index <= total; index++ {
		if err := ctx.Err(); err != nil {
			return domain.WrapError(domain.ErrCancelled, "upload chunk", err)
		}

		start := int64(index-1) * c.chunkSize
		end := start + c.chunkSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}

		if err := c.backend.UploadChunk(ctx, ports.ChunkRequest{
			Data:        data[start:end],
			Index:       index,
			TotalChunks: total,
			FileName:    file.Name,
			Context:     sess.Context,
		}); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", index, total, err)
		}

		progress := domain.ChunkProgress(index, total)
		c.updateSession(id, func(s *domain.UploadSession) {
			s.ChunkIndex = index
			s.Progress = progress
		})
	}

	return c.link(ctx, sess, file)
}

func (c *ChunkedUploadController) link(ctx context.Context, sess domain.UploadSession, file domain.FileMeta) error {
	if sess.Context.SlotID == "" {
		return nil
	}
	if err := c.backend.LinkUpload(ctx, file.Name, sess.Context.SlotID); err != nil {
		return fmt.Errorf("link upload to slot %s: %w", sess.Context.SlotID, err)
	}
	return nil
}

// commit constructs the UploadedDocument only after the transfer reached
// terminal success, and hands it to the hierarchy.
func (c *ChunkedUploadController) commit(ctx context.Context, sess domain.UploadSession, file domain.FileMeta) error {
	now := c.now()
	doc := &domain.UploadedDocument{
		ID:        c.newID(),
		Name:      file.Name,
		Size:      file.Size,
		MimeType:  file.MimeType,
		Type:      sess.Context.DocumentType,
		Status:    domain.StatusUploaded,
		Progress:  100,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if sess.Context.SlotID != "" {
		if _, err := c.hierarchy.AttachUpload(ctx, sess.Context.SlotID, doc); err != nil {
			return err
		}
		return nil
	}
	return c.hierarchy.AddUnclassified(ctx, sess.Context.ProductID, doc)
}

func (c *ChunkedUploadController) updateSession(id string, apply func(*domain.UploadSession)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tracked, ok := c.sessions[id]; ok {
		apply(&tracked.session)
	}
}
