package books

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/pagination"
)

// InitializeCommand carries the optional seed data for a new workflow.
// BookID, when set, makes initialization an idempotent resume: an
// existing document is returned unchanged rather than overwritten.
type InitializeCommand struct {
	BookID        *uuid.UUID `json:"bookId,omitempty"`
	BookTitle     string     `json:"bookTitle,omitempty"`
	BookConcept   string     `json:"bookConcept,omitempty"`
	TargetAge     string     `json:"targetAge,omitempty"`
	IsPictureBook *bool      `json:"isPictureBook,omitempty"`
}

// InitializeResult reports whether a document was created or resumed.
type InitializeResult struct {
	Created bool
	State   *BookState
}

// ApproveResult reports the outcome of the user-facing approval signal.
type ApproveResult struct {
	StepApproved bool
	CurrentStep  int
	State        *BookState
}

// System defines the public contract of the workflow engine: the five
// agent-facing actions plus the read surface for the presentation UI.
type System interface {
	Handler(maxPayload int64) *Handler

	Initialize(ctx context.Context, userID uuid.UUID, cmd InitializeCommand) (*InitializeResult, error)

	UpdateStep(ctx context.Context, userID, bookID uuid.UUID, stepNumber int, data Payload) (*BookState, error)

	ApproveStep(
		ctx context.Context,
		userID, bookID uuid.UUID,
		stepNumber int,
		approved bool,
		feedback string,
	) (*ApproveResult, error)

	Regenerate(ctx context.Context, userID, bookID uuid.UUID, stepNumber int) (*BookState, error)

	Finalize(ctx context.Context, userID, bookID uuid.UUID) (*BookState, error)

	Find(ctx context.Context, userID, bookID uuid.UUID) (*BookState, error)

	List(
		ctx context.Context,
		userID uuid.UUID,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[BookSummary], error)
}
