package domain

import "time"

type DocumentStatus string

const (
	StatusNew       DocumentStatus = "new"
	StatusUploading DocumentStatus = "uploading"
	StatusUploaded  DocumentStatus = "uploaded"
	StatusFailed    DocumentStatus = "failed"
	StatusReprocess DocumentStatus = "ready_to_reprocess"
)

// UploadedDocument is a file committed against a Product. It is created only
// when a transfer reaches terminal success, never speculatively. SlotID is
// empty for unclassified uploads until a later reclassification.
type UploadedDocument struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Size      int64          `json:"size"`
	MimeType  string         `json:"mime_type,omitempty"`
	Type      DocumentType   `json:"document_type"`
	Status    DocumentStatus `json:"status"`
	Progress  int            `json:"progress"`
	SlotID    string         `json:"slot_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
