package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
)

// MutationObserver receives a snapshot of the tree after every committed
// mutation. The debounced autosaver implements it.
type MutationObserver interface {
	Notify(snap domain.Snapshot)
}

// HierarchyManager exclusively owns the Package tree. All mutations pass
// through it under a single mutex; readers get deep copies, never the live
// tree. A slot's fulfillment transition and the completion recompute for its
// product commit in the same critical section, so no reader observes one
// without the other.
type HierarchyManager struct {
	mu          sync.Mutex
	pkg         *domain.Package
	completions map[string]domain.CompletionStatus

	observer  MutationObserver
	publisher ports.EventPublisher
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewHierarchyManager(logger *slog.Logger) *HierarchyManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &HierarchyManager{
		completions: make(map[string]domain.CompletionStatus),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// SetObserver wires the autosaver. Must be called before mutations begin.
func (m *HierarchyManager) SetObserver(observer MutationObserver) {
	m.observer = observer
}

// SetPublisher wires the downstream-pipeline handoff. Publish failures are
// logged, never fatal to the mutation that triggered them.
func (m *HierarchyManager) SetPublisher(publisher ports.EventPublisher) {
	m.publisher = publisher
}

// Restore replaces the tree with the one in a loaded snapshot and rebuilds
// the committed completion view.
func (m *HierarchyManager) Restore(snap domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pkg = domain.RestorePackage(snap)
	m.completions = make(map[string]domain.CompletionStatus)
	for _, cat := range m.pkg.Categories {
		for _, prod := range cat.Products {
			m.completions[prod.ID] = ComputeCompletion(prod)
		}
	}
}

func (m *HierarchyManager) CreateCategory(ctx context.Context, catType domain.CategoryType, name, description string) (*domain.Category, error) {
	if !domain.KnownCategoryTypes[catType] {
		return nil, domain.WrapError(domain.ErrValidation, "create category",
			fmt.Errorf("unknown category type %q", catType))
	}
	if strings.TrimSpace(name) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "create category",
			errors.New("name must not be empty"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.pkg == nil {
		m.pkg = &domain.Package{
			ID:        m.newID(),
			CreatedAt: now,
		}
	}

	cat := &domain.Category{
		ID:          m.newID(),
		Type:        catType,
		Name:        name,
		Description: description,
		Products:    []*domain.Product{},
		CreatedAt:   now,
	}
	m.pkg.Categories = append(m.pkg.Categories, cat)
	m.commitLocked()

	copied := *cat
	return &copied, nil
}

// CreateProduct creates the product together with its product-level
// Guidelines slot and one program-level Matrix slot per program, atomically.
// Slots are never created lazily during upload.
func (m *HierarchyManager) CreateProduct(ctx context.Context, categoryID, name, description string, programs []domain.Program) (*domain.Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "create product",
			errors.New("name must not be empty"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cat := m.categoryLocked(categoryID)
	if cat == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "create product",
			fmt.Errorf("category %s", categoryID))
	}

	now := m.now()
	prod := &domain.Product{
		ID:          m.newID(),
		Name:        name,
		Description: description,
		Programs:    []*domain.Program{},
		Slots:       []*domain.Slot{},
		Documents:   []*domain.UploadedDocument{},
		CreatedAt:   now,
	}

	prod.Slots = append(prod.Slots, &domain.Slot{
		ID:        m.newID(),
		Type:      domain.DocTypeGuidelines,
		Level:     domain.LevelProduct,
		CreatedAt: now,
	})
	prod.RequiredTypes = []domain.DocumentType{domain.DocTypeGuidelines}

	for _, program := range programs {
		p := program
		if p.ID == "" {
			p.ID = m.newID()
		}
		prod.Programs = append(prod.Programs, &p)
		prod.Slots = append(prod.Slots, &domain.Slot{
			ID:        m.newID(),
			Type:      domain.DocTypeMatrix,
			Level:     domain.LevelProgram,
			ProgramID: p.ID,
			CreatedAt: now,
		})
	}
	if len(programs) > 0 {
		prod.RequiredTypes = append(prod.RequiredTypes, domain.DocTypeMatrix)
	}

	cat.Products = append(cat.Products, prod)
	m.completions[prod.ID] = ComputeCompletion(prod)
	m.commitLocked()

	return copyProduct(prod), nil
}

// AttachUpload is the single mutation point that can change completion
// state. It fails with a conflict when the slot is already fulfilled and
// leaves the existing fulfillment untouched.
func (m *HierarchyManager) AttachUpload(ctx context.Context, slotID string, doc *domain.UploadedDocument) (*domain.Slot, error) {
	slot, err := m.attachUpload(slotID, doc)
	if err != nil {
		return nil, err
	}
	m.publishCompleted(ctx, doc.ID)
	return slot, nil
}

func (m *HierarchyManager) attachUpload(slotID string, doc *domain.UploadedDocument) (*domain.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prod, slot := m.slotLocked(slotID)
	if slot == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "attach upload",
			fmt.Errorf("slot %s", slotID))
	}
	if slot.HasUpload {
		return nil, domain.WrapError(domain.ErrConflict, "attach upload",
			fmt.Errorf("slot %s already fulfilled by document %s", slotID, slot.DocumentID))
	}

	now := m.now()
	doc.SlotID = slot.ID
	doc.Status = domain.StatusUploaded
	doc.Progress = 100
	doc.UpdatedAt = now
	if prod.DocumentByID(doc.ID) == nil {
		prod.Documents = append(prod.Documents, doc)
	}
	slot.HasUpload = true
	slot.DocumentID = doc.ID

	m.completions[prod.ID] = ComputeCompletion(prod)
	m.commitLocked()

	copied := *slot
	return &copied, nil
}

// AddUnclassified commits an upload that matched no slot. The document stays
// "Other" until a later reclassification reconciles it.
func (m *HierarchyManager) AddUnclassified(ctx context.Context, productID string, doc *domain.UploadedDocument) error {
	if err := m.addUnclassified(productID, doc); err != nil {
		return err
	}
	m.publishCompleted(ctx, doc.ID)
	return nil
}

func (m *HierarchyManager) addUnclassified(productID string, doc *domain.UploadedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prod := m.productLocked(productID)
	if prod == nil {
		return domain.WrapError(domain.ErrNotFound, "add unclassified upload",
			fmt.Errorf("product %s", productID))
	}

	doc.Status = domain.StatusUploaded
	doc.Progress = 100
	doc.UpdatedAt = m.now()
	if prod.DocumentByID(doc.ID) == nil {
		prod.Documents = append(prod.Documents, doc)
	}

	m.completions[prod.ID] = ComputeCompletion(prod)
	m.commitLocked()
	return nil
}

// DetachUpload clears the slot fulfillment and leaves the document orphaned.
func (m *HierarchyManager) DetachUpload(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prod, doc := m.documentLocked(documentID)
	if doc == nil {
		return domain.WrapError(domain.ErrNotFound, "detach upload",
			fmt.Errorf("document %s", documentID))
	}

	m.detachLocked(prod, doc)
	m.completions[prod.ID] = ComputeCompletion(prod)
	m.commitLocked()
	return nil
}

// Reclassify updates a document's declared type and, when an unfulfilled
// slot of that type exists, re-attaches it there.
func (m *HierarchyManager) Reclassify(ctx context.Context, documentID string, newType domain.DocumentType) error {
	switch newType {
	case domain.DocTypeGuidelines, domain.DocTypeMatrix, domain.DocTypeSupporting, domain.DocTypeOther:
	default:
		return domain.WrapError(domain.ErrValidation, "reclassify",
			fmt.Errorf("unknown document type %q", newType))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prod, doc := m.documentLocked(documentID)
	if doc == nil {
		return domain.WrapError(domain.ErrNotFound, "reclassify",
			fmt.Errorf("document %s", documentID))
	}

	m.detachLocked(prod, doc)
	doc.Type = newType
	doc.Status = domain.StatusReprocess
	doc.UpdatedAt = m.now()

	if slot := firstSlotOfType(prod.Slots, newType, ""); slot != nil {
		slot.HasUpload = true
		slot.DocumentID = doc.ID
		doc.SlotID = slot.ID
		doc.Status = domain.StatusUploaded
	}

	m.completions[prod.ID] = ComputeCompletion(prod)
	m.commitLocked()
	return nil
}

// CurrentPackage returns a deep copy of the tree, or nil before the first
// category is created.
func (m *HierarchyManager) CurrentPackage() *domain.Package {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pkg == nil {
		return nil
	}
	snap := domain.BuildSnapshot("", domain.SnapshotAutosave, m.pkg, m.now())
	return domain.RestorePackage(snap)
}

// Completion serves the committed completion view for a product.
func (m *HierarchyManager) Completion(productID string) (domain.CompletionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.completions[productID]
	if !ok {
		return domain.CompletionStatus{}, domain.WrapError(domain.ErrNotFound, "completion",
			fmt.Errorf("product %s", productID))
	}
	return status, nil
}

// Completions returns the committed completion view for every product.
func (m *HierarchyManager) Completions() map[string]domain.CompletionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]domain.CompletionStatus, len(m.completions))
	for id, status := range m.completions {
		out[id] = status
	}
	return out
}

// Snapshot builds an immutable copy of the current tree.
func (m *HierarchyManager) Snapshot(kind domain.SnapshotKind) domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.BuildSnapshot(m.newID(), kind, m.pkg, m.now())
}

func (m *HierarchyManager) detachLocked(prod *domain.Product, doc *domain.UploadedDocument) {
	if doc.SlotID == "" {
		return
	}
	if slot := prod.SlotByID(doc.SlotID); slot != nil && slot.DocumentID == doc.ID {
		slot.HasUpload = false
		slot.DocumentID = ""
	}
	doc.SlotID = ""
}

// commitLocked finalizes a mutation: bump the modification time and hand a
// snapshot to the autosaver.
func (m *HierarchyManager) commitLocked() {
	now := m.now()
	m.pkg.LastModified = now

	if m.observer != nil {
		m.observer.Notify(domain.BuildSnapshot(m.newID(), domain.SnapshotAutosave, m.pkg, now))
	}
}

// publishCompleted announces a completed upload downstream. It must run with
// the hierarchy mutex released: the publisher retries with backoff, and a
// broker outage must not stall reads behind an in-flight publish.
func (m *HierarchyManager) publishCompleted(ctx context.Context, documentID string) {
	if documentID == "" || m.publisher == nil {
		return
	}
	if err := m.publisher.PublishUploadCompleted(ctx, documentID); err != nil {
		m.logger.Warn("publish upload completed", "document_id", documentID, "error", err)
	}
}

func (m *HierarchyManager) categoryLocked(id string) *domain.Category {
	if m.pkg == nil {
		return nil
	}
	for _, cat := range m.pkg.Categories {
		if cat.ID == id {
			return cat
		}
	}
	return nil
}

func (m *HierarchyManager) productLocked(id string) *domain.Product {
	if m.pkg == nil {
		return nil
	}
	for _, cat := range m.pkg.Categories {
		for _, prod := range cat.Products {
			if prod.ID == id {
				return prod
			}
		}
	}
	return nil
}

func (m *HierarchyManager) slotLocked(id string) (*domain.Product, *domain.Slot) {
	if m.pkg == nil {
		return nil, nil
	}
	for _, cat := range m.pkg.Categories {
		for _, prod := range cat.Products {
			if slot := prod.SlotByID(id); slot != nil {
				return prod, slot
			}
		}
	}
	return nil, nil
}

func (m *HierarchyManager) documentLocked(id string) (*domain.Product, *domain.UploadedDocument) {
	if m.pkg == nil {
		return nil, nil
	}
	for _, cat := range m.pkg.Categories {
		for _, prod := range cat.Products {
			if doc := prod.DocumentByID(id); doc != nil {
				return prod, doc
			}
		}
	}
	return nil, nil
}

func copyProduct(prod *domain.Product) *domain.Product {
	copied := *prod
	copied.Programs = make([]*domain.Program, 0, len(prod.Programs))
	for _, p := range prod.Programs {
		c := *p
		copied.Programs = append(copied.Programs, &c)
	}
	copied.Slots = make([]*domain.Slot, 0, len(prod.Slots))
	for _, s := range prod.Slots {
		c := *s
		copied.Slots = append(copied.Slots, &c)
	}
	copied.Documents = make([]*domain.UploadedDocument, 0, len(prod.Documents))
	for _, d := range prod.Documents {
		c := *d
		copied.Documents = append(copied.Documents, &c)
	}
	copied.RequiredTypes = append([]domain.DocumentType(nil), prod.RequiredTypes...)
	return &copied
}
