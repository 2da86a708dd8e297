package ports

import (
	"context"

	"github.com/lendstack/docpack/internal/core/domain"
)

// HierarchyService is the inbound contract for package-tree mutations and
// read views.
type HierarchyService interface {
	CreateCategory(ctx context.Context, catType domain.CategoryType, name, description string) (*domain.Category, error)
	CreateProduct(ctx context.Context, categoryID, name, description string, programs []domain.Program) (*domain.Product, error)
	AttachUpload(ctx context.Context, slotID string, doc *domain.UploadedDocument) (*domain.Slot, error)
	AddUnclassified(ctx context.Context, productID string, doc *domain.UploadedDocument) error
	DetachUpload(ctx context.Context, documentID string) error
	Reclassify(ctx context.Context, documentID string, newType domain.DocumentType) error
	CurrentPackage() *domain.Package
	Completion(productID string) (domain.CompletionStatus, error)
}

// UploadService is the inbound contract for file transfers. Files are queued
// and transferred one at a time.
type UploadService interface {
	Enqueue(ctx context.Context, file domain.FileMeta, data []byte, uploadCtx domain.UploadContext) (*domain.UploadSession, error)
	Session(id string) (*domain.UploadSession, error)
	Retry(ctx context.Context, id string) (*domain.UploadSession, error)
}

// SnapshotService is the inbound contract for explicit save/load/export.
type SnapshotService interface {
	SaveVersion(ctx context.Context) (string, error)
	LoadLatest(ctx context.Context) (*domain.Snapshot, error)
}
