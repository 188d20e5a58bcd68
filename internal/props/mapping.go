package props

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/query"
	"github.com/JaimeStill/fable/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "props", "p").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("book_id", "BookID").
	Project("entity_type", "EntityType").
	Project("name", "Name").
	Project("image_url", "ImageURL").
	Project("storage_key", "StorageKey").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for prop queries.
// Nil fields are ignored.
type Filters struct {
	BookID     *uuid.UUID `json:"book_id,omitempty"`
	EntityType *string    `json:"entity_type,omitempty"`
	Name       *string    `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("BookID", f.BookID).
		WhereEquals("EntityType", f.EntityType).
		WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if b := values.Get("book_id"); b != "" {
		if id, err := uuid.Parse(b); err == nil {
			f.BookID = &id
		}
	}

	if et := values.Get("entity_type"); et != "" {
		f.EntityType = &et
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	return f
}

func scanProp(s repository.Scanner) (Prop, error) {
	var p Prop
	err := s.Scan(
		&p.ID,
		&p.UserID,
		&p.BookID,
		&p.EntityType,
		&p.Name,
		&p.ImageURL,
		&p.StorageKey,
		&p.CreatedAt,
	)
	return p, err
}
