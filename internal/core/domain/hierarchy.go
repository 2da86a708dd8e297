// Package domain holds the document-package tree and the upload lifecycle
// types. The tree is owned by the hierarchy manager in core/usecase; nothing
// else mutates it.
package domain

import "time"

type CategoryType string

const (
	CategoryNQM  CategoryType = "NQM"
	CategoryRTL  CategoryType = "RTL"
	CategorySBC  CategoryType = "SBC"
	CategoryCONV CategoryType = "CONV"
)

// KnownCategoryTypes lists the category codes CreateCategory accepts.
var KnownCategoryTypes = map[CategoryType]bool{
	CategoryNQM:  true,
	CategoryRTL:  true,
	CategorySBC:  true,
	CategoryCONV: true,
}

type DocumentType string

const (
	DocTypeGuidelines DocumentType = "Guidelines"
	DocTypeMatrix     DocumentType = "Matrix"
	DocTypeSupporting DocumentType = "Supporting"
	DocTypeOther      DocumentType = "Other"
)

type SlotLevel string

const (
	LevelProduct SlotLevel = "product"
	LevelProgram SlotLevel = "program"
)

// Package is the root container for a document set being assembled.
type Package struct {
	ID           string      `json:"id"`
	Categories   []*Category `json:"categories"`
	CreatedAt    time.Time   `json:"created_at"`
	LastModified time.Time   `json:"last_modified"`
}

type Category struct {
	ID          string       `json:"id"`
	Type        CategoryType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Products    []*Product   `json:"products"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Product owns its expected-document slots and the documents uploaded against
// them. RequiredTypes is fixed at creation and drives completion.
type Product struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Programs      []*Program          `json:"programs"`
	Slots         []*Slot             `json:"slots"`
	Documents     []*UploadedDocument `json:"documents"`
	RequiredTypes []DocumentType      `json:"required_types"`
	CreatedAt     time.Time           `json:"created_at"`
}

type Program struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Slot is an expected-document template. HasUpload is true iff exactly one
// UploadedDocument references it.
type Slot struct {
	ID         string       `json:"id"`
	Type       DocumentType `json:"document_type"`
	Level      SlotLevel    `json:"level"`
	ProgramID  string       `json:"program_id,omitempty"`
	HasUpload  bool         `json:"has_upload"`
	DocumentID string       `json:"document_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// CompletionStatus is the derived readiness metric for a Product.
type CompletionStatus struct {
	IsComplete           bool           `json:"is_complete"`
	CompletionPercentage int            `json:"completion_percentage"`
	MissingDocuments     []DocumentType `json:"missing_documents"`
}

func (p *Product) SlotByID(id string) *Slot {
	for _, s := range p.Slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (p *Product) DocumentByID(id string) *UploadedDocument {
	for _, d := range p.Documents {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// UnfulfilledSlots returns slots without an upload, in creation order.
func (p *Product) UnfulfilledSlots() []*Slot {
	out := make([]*Slot, 0, len(p.Slots))
	for _, s := range p.Slots {
		if !s.HasUpload {
			out = append(out, s)
		}
	}
	return out
}
