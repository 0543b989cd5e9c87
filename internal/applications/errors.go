package applications

import (
	"errors"
	"net/http"
)

// Domain errors for application operations.
var (
	ErrNotFound  = errors.New("application not found")
	ErrDuplicate = errors.New("application reference already registered")
	ErrReference = errors.New("application reference is required")
)

// MapHTTPStatus maps application domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrReference) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
