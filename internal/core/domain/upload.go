package domain

import "time"

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionUploading SessionStatus = "uploading"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// UploadSession is the transient per-transfer state. Destroyed once terminal;
// never persisted in snapshots.
type UploadSession struct {
	ID          string        `json:"id"`
	FileName    string        `json:"file_name"`
	TotalSize   int64         `json:"total_size"`
	ChunkSize   int64         `json:"chunk_size"`
	TotalChunks int           `json:"total_chunks"`
	ChunkIndex  int           `json:"chunk_index"`
	Progress    int           `json:"progress"`
	Status      SessionStatus `json:"status"`
	RetryCount  int           `json:"retry_count"`
	LastError   string        `json:"last_error,omitempty"`
	Context     UploadContext `json:"context"`
	CreatedAt   time.Time     `json:"created_at"`
}

// UploadContext carries the hierarchy coordinates a transfer commits into.
type UploadContext struct {
	CategoryID   string       `json:"category_id"`
	ProductID    string       `json:"product_id"`
	DocumentType DocumentType `json:"document_type"`
	SlotID       string       `json:"expected_slot_id,omitempty"`
}

// ChunkCount returns ceil(size/chunkSize); at least 1 for non-empty files.
func ChunkCount(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// ChunkProgress reports percent complete after chunk index out of total,
// rounded up so a partially transferred file never reads as 0%.
func ChunkProgress(index, total int) int {
	if total <= 0 {
		return 0
	}
	if index >= total {
		return 100
	}
	return (index*100 + total - 1) / total
}
