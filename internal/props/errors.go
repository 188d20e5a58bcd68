package props

import (
	"errors"
	"net/http"
)

// Domain errors for prop operations.
var (
	ErrNotFound     = errors.New("prop not found")
	ErrDuplicate    = errors.New("prop already exists")
	ErrInvalidScope = errors.New("prop scope requires user, book, entity type, and name")
)

// MapHTTPStatus maps prop domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidScope) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
