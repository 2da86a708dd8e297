package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
)

type backendFake struct {
	chunks   []ports.ChunkRequest
	links    []string
	failAt   int
	failWith error
}

func (b *backendFake) UploadChunk(_ context.Context, req ports.ChunkRequest) error {
	if b.failAt > 0 && req.Index == b.failAt {
		if b.failWith != nil {
			return b.failWith
		}
		return domain.WrapError(domain.ErrTransientNetwork, "upload chunk", errors.New("connection reset"))
	}
	b.chunks = append(b.chunks, req)
	return nil
}

func (b *backendFake) LinkUpload(_ context.Context, _, slotID string) error {
	b.links = append(b.links, slotID)
	return nil
}

type hierarchySink struct {
	attached     []*domain.UploadedDocument
	unclassified []*domain.UploadedDocument
}

func (h *hierarchySink) CreateCategory(context.Context, domain.CategoryType, string, string) (*domain.Category, error) {
	return nil, nil
}

func (h *hierarchySink) CreateProduct(context.Context, string, string, string, []domain.Program) (*domain.Product, error) {
	return nil, nil
}

func (h *hierarchySink) AttachUpload(_ context.Context, slotID string, doc *domain.UploadedDocument) (*domain.Slot, error) {
	h.attached = append(h.attached, doc)
	return &domain.Slot{ID: slotID, HasUpload: true, DocumentID: doc.ID}, nil
}

func (h *hierarchySink) AddUnclassified(_ context.Context, _ string, doc *domain.UploadedDocument) error {
	h.unclassified = append(h.unclassified, doc)
	return nil
}

func (h *hierarchySink) DetachUpload(context.Context, string) error { return nil }

func (h *hierarchySink) Reclassify(context.Context, string, domain.DocumentType) error { return nil }

func (h *hierarchySink) CurrentPackage() *domain.Package { return nil }

func (h *hierarchySink) Completion(string) (domain.CompletionStatus, error) {
	return domain.CompletionStatus{}, nil
}

// retryFake re-runs the operation on transient errors up to maxAttempts, with
// no backoff, mirroring the production scheduler's classification.
type retryFake struct {
	maxAttempts int
}

func (r retryFake) Run(ctx context.Context, _ string, fn func(context.Context) error) error {
	attempts := r.maxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil || !domain.IsKind(err, domain.ErrTransient) {
			return err
		}
	}
	return err
}

func newTestController(backend ports.TransferBackend, hierarchy ports.HierarchyService, retry ports.RetryScheduler) *ChunkedUploadController {
	c := NewChunkedUploadController(backend, hierarchy, retry, nil, 4, 4)
	seq := 0
	c.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return c
}

func enqueue(t *testing.T, c *ChunkedUploadController, size int) *domain.UploadSession {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	sess, err := c.Enqueue(context.Background(), domain.FileMeta{
		Name:     "guidelines.pdf",
		Size:     int64(size),
		MimeType: "application/pdf",
	}, data, domain.UploadContext{
		ProductID:    "prod-1",
		DocumentType: domain.DocTypeGuidelines,
		SlotID:       "slot-1",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return sess
}

func TestTransferSendsChunksStrictlySequentially(t *testing.T) {
	backend := &backendFake{}
	hierarchy := &hierarchySink{}
	c := newTestController(backend, hierarchy, nil)

	// 100 bytes at chunk size 4 is 25 chunks.
	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)

	if len(backend.chunks) != 25 {
		t.Fatalf("expected 25 chunks, got %d", len(backend.chunks))
	}
	for i, chunk := range backend.chunks {
		if chunk.Index != i+1 {
			t.Fatalf("chunk %d sent with index %d; indices must be strictly increasing", i, chunk.Index)
		}
		if chunk.TotalChunks != 25 {
			t.Fatalf("chunk %d declared total %d", i, chunk.TotalChunks)
		}
	}

	final, _ := c.Session(sess.ID)
	if final.Status != domain.SessionCompleted || final.Progress != 100 {
		t.Fatalf("expected completed at 100%%, got %s at %d%%", final.Status, final.Progress)
	}
	if len(hierarchy.attached) != 1 {
		t.Fatalf("expected exactly one committed document, got %d", len(hierarchy.attached))
	}
	if len(backend.links) != 1 || backend.links[0] != "slot-1" {
		t.Fatalf("expected link to slot-1, got %v", backend.links)
	}
}

func TestProgressAfterChunk13Of25Is52(t *testing.T) {
	backend := &backendFake{failAt: 14}
	c := newTestController(backend, &hierarchySink{}, nil)

	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)

	final, _ := c.Session(sess.ID)
	if final.ChunkIndex != 13 {
		t.Fatalf("expected 13 chunks acknowledged, got %d", final.ChunkIndex)
	}
	if final.Progress != 52 {
		t.Fatalf("expected 52%% after 13/25 chunks, got %d%%", final.Progress)
	}
}

func TestFailedChunkCommitsNothing(t *testing.T) {
	backend := &backendFake{failAt: 14}
	hierarchy := &hierarchySink{}
	c := newTestController(backend, hierarchy, nil)

	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)

	final, _ := c.Session(sess.ID)
	if final.Status != domain.SessionFailed {
		t.Fatalf("expected failed session, got %s", final.Status)
	}
	if final.LastError == "" {
		t.Fatal("failed session must carry the last error")
	}
	if len(hierarchy.attached)+len(hierarchy.unclassified) != 0 {
		t.Fatal("no document may be committed after a failed transfer")
	}
	if len(backend.links) != 0 {
		t.Fatal("no slot link after a failed transfer")
	}
}

func TestSmallFileGoesSingleShot(t *testing.T) {
	backend := &backendFake{}
	c := newTestController(backend, &hierarchySink{}, nil)

	sess := enqueue(t, c, 3)
	if sess.TotalChunks != 1 {
		t.Fatalf("files below the threshold use one chunk, got %d", sess.TotalChunks)
	}
	c.process(context.Background(), sess.ID)

	if len(backend.chunks) != 1 || backend.chunks[0].Index != 1 || backend.chunks[0].TotalChunks != 1 {
		t.Fatalf("expected a single 1/1 chunk, got %+v", backend.chunks)
	}
}

func TestEachRetryAttemptRestartsFromChunkOne(t *testing.T) {
	backend := &backendFake{failAt: 3}
	c := newTestController(backend, &hierarchySink{}, retryFake{maxAttempts: 4})

	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)

	// 4 attempts, each sends chunks 1 and 2 before failing at 3.
	if len(backend.chunks) != 8 {
		t.Fatalf("expected 8 chunks across 4 restarted attempts, got %d", len(backend.chunks))
	}
	for i, chunk := range backend.chunks {
		want := i%2 + 1
		if chunk.Index != want {
			t.Fatalf("chunk %d had index %d, want %d: attempts must restart from chunk 1", i, chunk.Index, want)
		}
	}

	final, _ := c.Session(sess.ID)
	if final.Status != domain.SessionFailed {
		t.Fatalf("expected failed after exhausting retries, got %s", final.Status)
	}
	if final.RetryCount != 3 {
		t.Fatalf("expected retry count 3 after 4 attempts, got %d", final.RetryCount)
	}
}

func TestValidationFailureIsNotRetried(t *testing.T) {
	backend := &backendFake{
		failAt:   1,
		failWith: domain.WrapError(domain.ErrValidation, "upload chunk", errors.New("bad request")),
	}
	c := newTestController(backend, &hierarchySink{}, retryFake{maxAttempts: 4})

	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)

	if len(backend.chunks) != 0 {
		t.Fatalf("expected no successful chunks, got %d", len(backend.chunks))
	}
	final, _ := c.Session(sess.ID)
	if final.RetryCount != 0 {
		t.Fatalf("non-transient failures must not consume retries, got %d", final.RetryCount)
	}
}

func TestManualRetryResetsCountersAndRequeues(t *testing.T) {
	backend := &backendFake{failAt: 14}
	c := newTestController(backend, &hierarchySink{}, nil)

	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)
	// drain the original queue entry left from Enqueue
	<-c.queue

	requeued, err := c.Retry(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if requeued.Status != domain.SessionPending {
		t.Fatalf("expected pending after retry, got %s", requeued.Status)
	}
	if requeued.RetryCount != 0 || requeued.LastError != "" || requeued.ChunkIndex != 0 || requeued.Progress != 0 {
		t.Fatalf("retry must reset counters, got %+v", requeued)
	}

	select {
	case id := <-c.queue:
		if id != sess.ID {
			t.Fatalf("expected session %s requeued, got %s", sess.ID, id)
		}
	default:
		t.Fatal("retry must requeue the session")
	}

	backend.failAt = 0
	c.process(context.Background(), sess.ID)
	final, _ := c.Session(sess.ID)
	if final.Status != domain.SessionCompleted {
		t.Fatalf("expected completion after manual retry, got %s", final.Status)
	}
}

func TestRetryRejectsSessionsThatAreNotFailed(t *testing.T) {
	c := newTestController(&backendFake{}, &hierarchySink{}, nil)

	sess := enqueue(t, c, 100)
	_, err := c.Retry(context.Background(), sess.ID)
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for a pending session, got %v", err)
	}
}

func TestEnqueueRejectsEmptyFile(t *testing.T) {
	c := newTestController(&backendFake{}, &hierarchySink{}, nil)

	_, err := c.Enqueue(context.Background(), domain.FileMeta{Name: "empty.pdf"}, nil, domain.UploadContext{ProductID: "prod-1"})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnqueueRejectsMismatchedDeclaredSize(t *testing.T) {
	c := newTestController(&backendFake{}, &hierarchySink{}, nil)

	_, err := c.Enqueue(context.Background(), domain.FileMeta{
		Name: "guidelines.pdf",
		Size: 200,
	}, make([]byte, 100), domain.UploadContext{ProductID: "prod-1"})
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for a size mismatch, got %v", err)
	}
}

func TestCompletedSessionsAreEvictedAfterGracePeriod(t *testing.T) {
	c := newTestController(&backendFake{}, &hierarchySink{}, nil)
	c.retention = 10 * time.Millisecond

	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := c.Session(sess.ID); domain.IsKind(err, domain.ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("completed session never left the map")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFailedSessionsStayForManualRetry(t *testing.T) {
	backend := &backendFake{failAt: 1, failWith: errors.New("broker away")}
	c := newTestController(backend, &hierarchySink{}, nil)
	c.retention = time.Nanosecond

	sess := enqueue(t, c, 100)
	c.process(context.Background(), sess.ID)

	time.Sleep(20 * time.Millisecond)
	got, err := c.Session(sess.ID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if got.Status != domain.SessionFailed {
		t.Fatalf("expected failed status, got %s", got.Status)
	}
}

func TestUnmatchedUploadCommitsAsUnclassified(t *testing.T) {
	backend := &backendFake{}
	hierarchy := &hierarchySink{}
	c := newTestController(backend, hierarchy, nil)

	data := []byte("mystery content")
	sess, err := c.Enqueue(context.Background(), domain.FileMeta{
		Name: "notes.pdf",
		Size: int64(len(data)),
	}, data, domain.UploadContext{ProductID: "prod-1", DocumentType: domain.DocTypeOther})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	c.process(context.Background(), sess.ID)

	if len(hierarchy.unclassified) != 1 {
		t.Fatalf("expected one unclassified commit, got %d", len(hierarchy.unclassified))
	}
	if len(backend.links) != 0 {
		t.Fatal("no slot link for an unclassified upload")
	}
}
