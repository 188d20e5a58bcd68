// Package props implements the prop domain: previously generated, named
// visual assets (character portraits, environment images) persisted for
// reuse across workflow steps. Props are written by the external image
// generation pipeline; this engine only reads them.
package props

import (
	"time"

	"github.com/google/uuid"
)

// Prop represents one reusable visual asset, scoped to a book and owner
// and keyed by entity type and name.
type Prop struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	BookID     uuid.UUID `json:"bookId"`
	EntityType string    `json:"entityType"`
	Name       string    `json:"name"`
	ImageURL   *string   `json:"imageUrl"`
	StorageKey *string   `json:"storageKey"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Scope identifies a single prop lookup.
type Scope struct {
	UserID     uuid.UUID
	BookID     uuid.UUID
	EntityType string
	Name       string
}
