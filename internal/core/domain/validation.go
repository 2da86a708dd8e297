package domain

import "fmt"

// ValidationRule constrains the files a slot (or the no-slot drop zone)
// accepts. Zero-valued fields disable the corresponding check.
type ValidationRule struct {
	AcceptedTypes     []string `json:"accepted_types" yaml:"accepted_types"`
	AcceptedMimeTypes []string `json:"accepted_mime_types" yaml:"accepted_mime_types"`
	MaxFileSize       int64    `json:"max_file_size" yaml:"max_file_size"`
}

type ValidationErrorKind string

const (
	ValidationFileSize   ValidationErrorKind = "file_size"
	ValidationFileType   ValidationErrorKind = "file_type"
	ValidationFileFormat ValidationErrorKind = "file_format"
)

// ValidationError is one violated rule. Suggestions give the user a concrete
// way out (compress, convert, pick another file).
type ValidationError struct {
	Kind        ValidationErrorKind `json:"kind"`
	Message     string              `json:"message"`
	Suggestions []string            `json:"suggestions,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// FileMeta is what validation sees of a candidate file before any bytes move.
type FileMeta struct {
	Name     string
	Size     int64
	MimeType string
}
