package cases

import (
	"errors"
	"net/http"
)

// Domain errors for case operations.
var (
	ErrCaseNotFound           = errors.New("case not found")
	ErrDuplicate              = errors.New("case already exists")
	ErrInvalidTransition      = errors.New("invalid phase transition")
	ErrConcurrentModification = errors.New("case modified concurrently")
	ErrEvidenceIncomplete     = errors.New("required evidence incomplete")
	ErrEvidenceClosed         = errors.New("evidence can no longer be appended")
	ErrAwaitingReview         = errors.New("case awaiting human review")
	ErrReviewExpired          = errors.New("review expired")
	ErrInvalidCommand         = errors.New("invalid case command")
)

// MapHTTPStatus maps case domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrEvidenceIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrEvidenceClosed):
		return http.StatusConflict
	case errors.Is(err, ErrAwaitingReview):
		return http.StatusConflict
	case errors.Is(err, ErrReviewExpired):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCommand):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
