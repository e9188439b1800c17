package httpadapter

import (
	"net/http"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrEmptyCorpus):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrCollaboratorUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
