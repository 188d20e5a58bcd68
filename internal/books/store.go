package books

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/pagination"
)

// Store is the persistence boundary for workflow documents. The
// reference implementation shares one physical table between the
// workflow metadata row (chapter slot 0) and narrative chapter rows
// (slots >= 1); the interface hides that arrangement so alternate
// stores stay possible.
type Store interface {
	// Load returns the workflow document for (bookID, userID), with
	// any chapter rows edited after the last save reconciled into the
	// step 5 payload. Returns ErrNotFound when absent, including when
	// the persisted document fails to deserialize, which is logged and
	// deliberately treated as not-yet-created.
	Load(ctx context.Context, bookID, userID uuid.UUID) (*BookState, error)

	// Save atomically upserts the document and its chapter rows. The
	// write succeeds only when the persisted revision still matches
	// state.Revision; a lost race returns ErrConflict and mutates
	// nothing. On success state.Revision carries the new revision.
	Save(ctx context.Context, state *BookState) error

	// List returns the caller's workflow documents as summaries read
	// from the denormalized metadata columns.
	List(
		ctx context.Context,
		userID uuid.UUID,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[BookSummary], error)
}
