package checks

import (
	"errors"
	"net/http"

	"github.com/planverify/verdict/internal/submissions"
)

// Domain errors for validation check operations.
var (
	ErrNotFound      = errors.New("check not found")
	ErrDuplicate     = errors.New("check already exists")
	ErrNoDocuments   = errors.New("validation requires at least one document input")
	ErrInvalidAction = errors.New("review action must be confirm or reject")
	ErrReviewer      = errors.New("review decision requires decided_by")
)

// MapHTTPStatus maps check domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNoDocuments) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrInvalidAction) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrReviewer) {
		return http.StatusBadRequest
	}
	if errors.Is(err, submissions.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, submissions.ErrImmutable) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
