package domain

import "time"

type SnapshotKind string

const (
	SnapshotAutosave SnapshotKind = "autosave"
	SnapshotVersion  SnapshotKind = "version"
)

// Snapshot is a persisted, timestamped serialization of the whole Package
// tree. Immutable once written; later snapshots supersede, never mutate.
type Snapshot struct {
	ID         string           `json:"id"`
	PackageID  string           `json:"package_id"`
	Kind       SnapshotKind     `json:"kind"`
	Categories []*Category      `json:"categories"`
	Metadata   SnapshotMetadata `json:"metadata"`
	CreatedAt  time.Time        `json:"created_at"`
}

type SnapshotMetadata struct {
	TotalCategories int       `json:"totalCategories"`
	TotalProducts   int       `json:"totalProducts"`
	TotalFiles      int       `json:"totalFiles"`
	CreatedAt       time.Time `json:"createdAt"`
	LastModified    time.Time `json:"lastModified"`
}

// BuildSnapshot derives an immutable snapshot from a Package tree. The tree
// is deep-copied so later mutations cannot reach into a written snapshot.
func BuildSnapshot(id string, kind SnapshotKind, pkg *Package, now time.Time) Snapshot {
	snap := Snapshot{
		ID:        id,
		Kind:      kind,
		CreatedAt: now,
	}
	if pkg == nil {
		return snap
	}
	snap.PackageID = pkg.ID

	totalProducts := 0
	totalFiles := 0
	snap.Categories = make([]*Category, 0, len(pkg.Categories))
	for _, cat := range pkg.Categories {
		catCopy := *cat
		catCopy.Products = make([]*Product, 0, len(cat.Products))
		for _, prod := range cat.Products {
			totalProducts++
			prodCopy := *prod
			prodCopy.Programs = copyPrograms(prod.Programs)
			prodCopy.Slots = copySlots(prod.Slots)
			prodCopy.Documents = copyDocuments(prod.Documents)
			prodCopy.RequiredTypes = append([]DocumentType(nil), prod.RequiredTypes...)
			totalFiles += len(prod.Documents)
			catCopy.Products = append(catCopy.Products, &prodCopy)
		}
		snap.Categories = append(snap.Categories, &catCopy)
	}

	snap.Metadata = SnapshotMetadata{
		TotalCategories: len(pkg.Categories),
		TotalProducts:   totalProducts,
		TotalFiles:      totalFiles,
		CreatedAt:       pkg.CreatedAt,
		LastModified:    pkg.LastModified,
	}
	return snap
}

// RestorePackage rebuilds a Package tree from a snapshot.
func RestorePackage(snap Snapshot) *Package {
	pkg := &Package{
		ID:           snap.PackageID,
		CreatedAt:    snap.Metadata.CreatedAt,
		LastModified: snap.Metadata.LastModified,
	}
	for _, cat := range snap.Categories {
		catCopy := *cat
		catCopy.Products = make([]*Product, 0, len(cat.Products))
		for _, prod := range cat.Products {
			prodCopy := *prod
			prodCopy.Programs = copyPrograms(prod.Programs)
			prodCopy.Slots = copySlots(prod.Slots)
			prodCopy.Documents = copyDocuments(prod.Documents)
			prodCopy.RequiredTypes = append([]DocumentType(nil), prod.RequiredTypes...)
			catCopy.Products = append(catCopy.Products, &prodCopy)
		}
		pkg.Categories = append(pkg.Categories, &catCopy)
	}
	return pkg
}

func copyPrograms(in []*Program) []*Program {
	out := make([]*Program, 0, len(in))
	for _, p := range in {
		c := *p
		out = append(out, &c)
	}
	return out
}

func copySlots(in []*Slot) []*Slot {
	out := make([]*Slot, 0, len(in))
	for _, s := range in {
		c := *s
		out = append(out, &c)
	}
	return out
}

func copyDocuments(in []*UploadedDocument) []*UploadedDocument {
	out := make([]*UploadedDocument, 0, len(in))
	for _, d := range in {
		c := *d
		out = append(out, &c)
	}
	return out
}
