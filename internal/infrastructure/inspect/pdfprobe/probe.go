// Package pdfprobe verifies that files with a PDF extension actually parse
// as PDF. Other file types pass through untouched.
package pdfprobe

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Probe struct{}

func New() *Probe {
	return &Probe{}
}

func (p *Probe) Probe(name string, data []byte) error {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parse pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		return errors.New("pdf has no pages")
	}
	return nil
}
