// Package localfs writes snapshot exports as timestamped JSON files.
package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lendstack/docpack/internal/core/domain"
)

type Exporter struct {
	basePath string
}

func NewExporter(basePath string) (*Exporter, error) {
	if basePath == "" {
		basePath = "./data/exports"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Exporter{basePath: basePath}, nil
}

// Export writes the snapshot as an indented JSON document and returns the
// file path. Files are named by creation time plus snapshot id so exports
// sort chronologically.
func (e *Exporter) Export(_ context.Context, snap domain.Snapshot) (string, error) {
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	name := fmt.Sprintf("package-%s-%s.json", snap.CreatedAt.UTC().Format("20060102T150405Z"), snap.ID)
	path := filepath.Join(e.basePath, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("finalize export: %w", err)
	}
	return path, nil
}
