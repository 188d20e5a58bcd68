package books

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Domain errors for workflow operations.
var (
	ErrNotFound    = errors.New("workflow not found")
	ErrDuplicate   = errors.New("workflow already exists")
	ErrConflict    = errors.New("workflow was modified concurrently")
	ErrInvalidStep = errors.New("step number must be between 1 and 6")
	ErrMissingData = errors.New("step data is required")
	ErrInvalidBook = errors.New("invalid book id")
)

// ValidationError reports a step payload that failed schema validation
// against its step's variant.
type ValidationError struct {
	StepNumber int
	Detail     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d payload invalid: %s", e.StepNumber, e.Detail)
}

// MissingImagesError rejects a picture-book step update whose entities
// lack generated images. Entities carries every missing entity so the
// caller can generate images and retry in one pass.
type MissingImagesError struct {
	StepNumber int
	Entities   []string
}

func (e *MissingImagesError) Error() string {
	return fmt.Sprintf(
		"step %d requires images for: %s",
		e.StepNumber,
		strings.Join(e.Entities, ", "),
	)
}

// MapHTTPStatus maps workflow domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	var validation *ValidationError
	var missing *MissingImagesError

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStep),
		errors.Is(err, ErrMissingData),
		errors.Is(err, ErrInvalidBook):
		return http.StatusBadRequest
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
