package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks client-side rejections: the file itself violates a
	// slot's rules. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks an attach attempt on an already fulfilled slot.
	ErrConflict = errors.New("slot already fulfilled")
	// ErrNotFound marks references to unknown categories, products, slots or
	// documents.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures worth retrying. ErrTransientNetwork and
	// ErrTransientServer refine it; both satisfy IsKind(err, ErrTransient).
	ErrTransient        = errors.New("transient failure")
	ErrTransientNetwork = fmt.Errorf("%w: network", ErrTransient)
	ErrTransientServer  = fmt.Errorf("%w: server", ErrTransient)
	// ErrPersistence marks snapshot write/read failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrCancelled marks an upload session aborted by its context.
	ErrCancelled = errors.New("cancelled")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
