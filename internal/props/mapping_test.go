package props_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/internal/props"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", props.ErrNotFound, http.StatusNotFound},
		{"duplicate", props.ErrDuplicate, http.StatusConflict},
		{"invalid scope", props.ErrInvalidScope, http.StatusBadRequest},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find failed: %w", props.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := props.MapHTTPStatus(tt.err)
			if got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	t.Run("all params present", func(t *testing.T) {
		bookID := uuid.New()
		values := url.Values{
			"book_id":     {bookID.String()},
			"entity_type": {"character"},
			"name":        {"Luna"},
		}

		f := props.FiltersFromQuery(values)

		if f.BookID == nil || *f.BookID != bookID {
			t.Errorf("BookID = %v, want %s", f.BookID, bookID)
		}
		if f.EntityType == nil || *f.EntityType != "character" {
			t.Errorf("EntityType = %v, want character", f.EntityType)
		}
		if f.Name == nil || *f.Name != "Luna" {
			t.Errorf("Name = %v, want Luna", f.Name)
		}
	})

	t.Run("empty params yield nil fields", func(t *testing.T) {
		f := props.FiltersFromQuery(url.Values{})

		if f.BookID != nil {
			t.Errorf("BookID = %v, want nil", f.BookID)
		}
		if f.EntityType != nil {
			t.Errorf("EntityType = %v, want nil", f.EntityType)
		}
		if f.Name != nil {
			t.Errorf("Name = %v, want nil", f.Name)
		}
	})

	t.Run("malformed book id ignored", func(t *testing.T) {
		f := props.FiltersFromQuery(url.Values{"book_id": {"not-a-uuid"}})

		if f.BookID != nil {
			t.Errorf("BookID = %v, want nil for malformed input", f.BookID)
		}
	})
}
