package oversight

import (
	"errors"
	"net/http"
)

// Domain errors for oversight operations.
var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrReviewResolved  = errors.New("review already resolved")
	ErrDuplicate       = errors.New("review already exists")
	ErrMissingReviewer = errors.New("reviewer identity required")
)

// MapHTTPStatus maps oversight domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrReviewNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrReviewResolved) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrMissingReviewer) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
