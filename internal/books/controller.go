package books

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/pkg/pagination"
)

// Controller implements the System interface: it dispatches the five
// workflow actions, coordinating the merge, enrichment, spatial, and
// gate collaborators around a load, transition, save, snapshot
// cycle. All expected failures come back as typed domain errors; the
// action boundary never panics across.
type Controller struct {
	store      Store
	enricher   *Enricher
	sink       Sink
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// NewController creates the workflow controller.
func NewController(
	store Store,
	enricher *Enricher,
	sink Sink,
	logger *slog.Logger,
	pagination pagination.Config,
) *Controller {
	return &Controller{
		store:      store,
		enricher:   enricher,
		sink:       sink,
		logger:     logger.With("system", "books"),
		pagination: pagination,
		now:        time.Now,
	}
}

// Handler returns the HTTP handler for the workflow action surface.
func (c *Controller) Handler(maxPayload int64) *Handler {
	return NewHandler(c, c.logger, c.pagination, maxPayload)
}

// Initialize creates the six-step skeleton, optionally seeding step 1
// from the free-text concept. When the given bookId already has a
// document it is returned unchanged: initialize is an idempotent
// resume, never an overwrite.
func (c *Controller) Initialize(
	ctx context.Context,
	userID uuid.UUID,
	cmd InitializeCommand,
) (*InitializeResult, error) {
	bookID := uuid.New()
	if cmd.BookID != nil && *cmd.BookID != uuid.Nil {
		bookID = *cmd.BookID

		existing, err := c.store.Load(ctx, bookID, userID)
		if err == nil {
			c.logger.Info("workflow resumed", "book_id", bookID)
			c.sink.Publish(ctx, existing)
			return &InitializeResult{Created: false, State: existing}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load workflow %s: %w", bookID, err)
		}
	}

	now := c.now()
	state := NewBookState(bookID, userID, now)
	state.BookTitle = cmd.BookTitle
	state.BookConcept = cmd.BookConcept
	state.TargetAge = cmd.TargetAge

	switch {
	case cmd.IsPictureBook != nil:
		state.SetPictureBook(*cmd.IsPictureBook)
	case ConceptSuggestsPictureBook(cmd.BookConcept):
		state.SetPictureBook(true)
	}

	if seed := SeedFromConcept(cmd.BookConcept); seed != nil {
		state.Step(StepStoryPlanning).Data = seed
		if state.TargetAge == "" {
			state.TargetAge = stringField(seed, "targetAge")
		}
	}

	if err := c.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save workflow %s: %w", bookID, err)
	}

	c.logger.Info("workflow initialized", "book_id", bookID, "user_id", userID)
	c.sink.Publish(ctx, state)
	return &InitializeResult{Created: true, State: state}, nil
}

// UpdateStep accepts a partial step payload from the agent. The payload
// is schema-checked, enriched with known images (steps 2/4), merged
// onto existing data, spatially enhanced (steps 4/5), and gated on the
// picture-book image requirement before anything persists. A gate
// failure rejects the whole update and names every missing entity.
func (c *Controller) UpdateStep(
	ctx context.Context,
	userID, bookID uuid.UUID,
	stepNumber int,
	data Payload,
) (*BookState, error) {
	if !ValidStep(stepNumber) {
		return nil, ErrInvalidStep
	}
	if len(data) == 0 {
		return nil, ErrMissingData
	}

	state, err := c.store.Load(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	if err := ValidatePayload(stepNumber, data); err != nil {
		return nil, err
	}

	data = c.enricher.Enrich(ctx, userID, bookID, stepNumber, data)

	merged := Merge(state.Step(stepNumber).Data, data)

	// Spatial directives decorate the merged document, never the raw
	// partial. Running them on the incoming payload would manufacture a
	// non-empty description that the keyed merge then treats as an
	// overwrite of accumulated text.
	merged = EnhanceSpatial(merged, stepNumber)

	// The gate runs against the merged, enriched collection so the
	// missing list reflects exactly what would persist.
	if missing := MissingImages(stepNumber, merged, state.PictureBook()); len(missing) > 0 {
		return nil, &MissingImagesError{StepNumber: stepNumber, Entities: missing}
	}

	applyStepUpdate(state, stepNumber, merged, c.now())

	if err := c.store.Save(ctx, state); err != nil {
		return nil, err
	}

	c.logger.Info(
		"step updated",
		"book_id", bookID,
		"step", stepNumber,
		"current_step", state.CurrentStep,
	)
	c.sink.Publish(ctx, state)
	return state, nil
}

// ApproveStep records the user's approval or rejection of a step.
func (c *Controller) ApproveStep(
	ctx context.Context,
	userID, bookID uuid.UUID,
	stepNumber int,
	approved bool,
	feedback string,
) (*ApproveResult, error) {
	if !ValidStep(stepNumber) {
		return nil, ErrInvalidStep
	}

	state, err := c.store.Load(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	applyApprove(state, stepNumber, approved, feedback, c.now())

	if err := c.store.Save(ctx, state); err != nil {
		return nil, err
	}

	c.logger.Info(
		"step reviewed",
		"book_id", bookID,
		"step", stepNumber,
		"approved", approved,
	)
	c.sink.Publish(ctx, state)
	return &ApproveResult{
		StepApproved: approved,
		CurrentStep:  state.CurrentStep,
		State:        state,
	}, nil
}

// Regenerate marks a step as in progress again without discarding its
// accumulated data.
func (c *Controller) Regenerate(
	ctx context.Context,
	userID, bookID uuid.UUID,
	stepNumber int,
) (*BookState, error) {
	if !ValidStep(stepNumber) {
		return nil, ErrInvalidStep
	}

	state, err := c.store.Load(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	applyRegenerate(state, stepNumber, c.now())

	if err := c.store.Save(ctx, state); err != nil {
		return nil, err
	}

	c.logger.Info("step regenerating", "book_id", bookID, "step", stepNumber)
	c.sink.Publish(ctx, state)
	return state, nil
}

// Finalize recomputes and completes the final review. Safe to call
// repeatedly.
func (c *Controller) Finalize(
	ctx context.Context,
	userID, bookID uuid.UUID,
) (*BookState, error) {
	state, err := c.store.Load(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	applyFinalize(state, c.now())

	if err := c.store.Save(ctx, state); err != nil {
		return nil, err
	}

	c.logger.Info("workflow finalized", "book_id", bookID)
	c.sink.Publish(ctx, state)
	return state, nil
}

// Find returns the current workflow document.
func (c *Controller) Find(ctx context.Context, userID, bookID uuid.UUID) (*BookState, error) {
	return c.store.Load(ctx, bookID, userID)
}

// List returns the caller's workflow documents as summaries.
func (c *Controller) List(
	ctx context.Context,
	userID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[BookSummary], error) {
	page.Normalize(c.pagination)
	return c.store.List(ctx, userID, page, filters)
}
