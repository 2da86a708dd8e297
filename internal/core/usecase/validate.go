package usecase

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/core/ports"
)

// ValidationEngine checks candidate files against a slot's rules before any
// network activity. Validate accumulates every violated rule; callers on the
// drag-and-drop path take the first entry only.
type ValidationEngine struct {
	probe ports.FormatProbe
}

func NewValidationEngine(probe ports.FormatProbe) *ValidationEngine {
	return &ValidationEngine{probe: probe}
}

// Validate runs size, extension and MIME checks in that order and returns
// every violated rule. An empty result means the file is acceptable.
func (e *ValidationEngine) Validate(file domain.FileMeta, rule domain.ValidationRule) []domain.ValidationError {
	var errs []domain.ValidationError

	if rule.MaxFileSize > 0 && file.Size > rule.MaxFileSize {
		errs = append(errs, domain.ValidationError{
			Kind: domain.ValidationFileSize,
			Message: fmt.Sprintf("%s is %s, which exceeds the %s limit",
				file.Name, formatBytes(file.Size), formatBytes(rule.MaxFileSize)),
			Suggestions: []string{
				"compress the file before uploading",
				"split the document into smaller parts",
				"convert the file to a more compact format",
			},
		})
	}

	if len(rule.AcceptedTypes) > 0 {
		ext := normalizeExt(file.Name)
		if !containsFold(rule.AcceptedTypes, ext) {
			errs = append(errs, domain.ValidationError{
				Kind: domain.ValidationFileType,
				Message: fmt.Sprintf("%q files are not accepted here; accepted types: %s",
					ext, strings.Join(rule.AcceptedTypes, ", ")),
				Suggestions: []string{
					fmt.Sprintf("convert the document to one of: %s", strings.Join(rule.AcceptedTypes, ", ")),
				},
			})
		}
	}

	if len(rule.AcceptedMimeTypes) > 0 && file.MimeType != "" {
		if !containsFold(rule.AcceptedMimeTypes, file.MimeType) {
			errs = append(errs, domain.ValidationError{
				Kind: domain.ValidationFileFormat,
				Message: fmt.Sprintf("content type %q is not accepted; expected one of: %s",
					file.MimeType, strings.Join(rule.AcceptedMimeTypes, ", ")),
				Suggestions: []string{
					"re-export the document from its source application",
				},
			})
		}
	}

	return errs
}

// ValidateContent adds a deep format probe on top of Validate. Only files
// the probe understands (currently PDF) are inspected.
func (e *ValidationEngine) ValidateContent(file domain.FileMeta, rule domain.ValidationRule, data []byte) []domain.ValidationError {
	errs := e.Validate(file, rule)
	if e.probe == nil || len(data) == 0 {
		return errs
	}
	if err := e.probe.Probe(file.Name, data); err != nil {
		errs = append(errs, domain.ValidationError{
			Kind:    domain.ValidationFileFormat,
			Message: fmt.Sprintf("%s does not parse as its declared format: %v", file.Name, err),
			Suggestions: []string{
				"re-save or re-export the file and try again",
			},
		})
	}
	return errs
}

// First returns the highest-priority violation, or nil when the file passes.
func First(errs []domain.ValidationError) *domain.ValidationError {
	if len(errs) == 0 {
		return nil
	}
	return &errs[0]
}

// AsError folds a validation result into a single domain error kind.
func AsError(errs []domain.ValidationError) error {
	first := First(errs)
	if first == nil {
		return nil
	}
	return domain.WrapError(domain.ErrValidation, "validate file", *first)
}

func normalizeExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimPrefix(item, "."), strings.TrimPrefix(value, ".")) {
			return true
		}
	}
	return false
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
