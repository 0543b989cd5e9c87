package submissions

import (
	"errors"
	"net/http"
)

// Domain errors for submission operations.
var (
	ErrNotFound  = errors.New("submission not found")
	ErrDuplicate = errors.New("submission already exists")
	ErrImmutable = errors.New("submission is validated and cannot change")
	ErrLinked    = errors.New("submission already has an accepted parent link")
)

// MapHTTPStatus maps submission domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrImmutable) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrLinked) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
