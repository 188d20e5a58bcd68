package books

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/fable/pkg/query"
	"github.com/JaimeStill/fable/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "book_artifacts", "b").
	Project("book_id", "BookID").
	Project("user_id", "UserID").
	Project("chapter_slot", "ChapterSlot").
	Project("title", "Title").
	Project("content", "Progress").
	Project("current_step", "CurrentStep").
	Project("is_picture_book", "IsPictureBook").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for workflow listings.
// Nil fields are ignored.
type Filters struct {
	CurrentStep   *int    `json:"current_step,omitempty"`
	IsPictureBook *bool   `json:"is_picture_book,omitempty"`
	Title         *string `json:"title,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("CurrentStep", f.CurrentStep).
		WhereEquals("IsPictureBook", f.IsPictureBook).
		WhereContains("Title", f.Title)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if cs := values.Get("current_step"); cs != "" {
		if v, err := strconv.Atoi(cs); err == nil {
			f.CurrentStep = &v
		}
	}

	if pb := values.Get("is_picture_book"); pb != "" {
		if v, err := strconv.ParseBool(pb); err == nil {
			f.IsPictureBook = &v
		}
	}

	if t := values.Get("title"); t != "" {
		f.Title = &t
	}

	return f
}

func scanSummary(s repository.Scanner) (BookSummary, error) {
	var (
		b    BookSummary
		slot int
	)
	err := s.Scan(
		&b.BookID,
		&b.UserID,
		&slot,
		&b.Title,
		&b.Progress,
		&b.CurrentStep,
		&b.IsPictureBook,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}
