package httpadapter

import (
	"net/http"

	"github.com/lendstack/docpack/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTransient):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return "validation"
	case domain.IsKind(err, domain.ErrConflict):
		return "conflict"
	case domain.IsKind(err, domain.ErrNotFound):
		return "not_found"
	case domain.IsKind(err, domain.ErrTransientNetwork):
		return "network"
	case domain.IsKind(err, domain.ErrTransient):
		return "server"
	case domain.IsKind(err, domain.ErrCancelled):
		return "cancelled"
	case domain.IsKind(err, domain.ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
