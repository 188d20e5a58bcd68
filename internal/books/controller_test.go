package books_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/fable/internal/books"
	"github.com/JaimeStill/fable/internal/memory"
	"github.com/JaimeStill/fable/internal/props"
	"github.com/JaimeStill/fable/pkg/pagination"
)

func ptr[T any](v T) *T { return &v }

type fakeStore struct {
	states  map[uuid.UUID]*books.BookState
	saves   int
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: map[uuid.UUID]*books.BookState{}}
}

func (s *fakeStore) Load(_ context.Context, bookID, userID uuid.UUID) (*books.BookState, error) {
	state, ok := s.states[bookID]
	if !ok || state.UserID != userID {
		return nil, books.ErrNotFound
	}
	return state, nil
}

func (s *fakeStore) Save(_ context.Context, state *books.BookState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	state.Revision++
	s.states[state.BookID] = state
	return nil
}

func (s *fakeStore) List(
	_ context.Context,
	userID uuid.UUID,
	page pagination.PageRequest,
	_ books.Filters,
) (*pagination.PageResult[books.BookSummary], error) {
	var summaries []books.BookSummary
	for _, state := range s.states {
		if state.UserID == userID {
			summaries = append(summaries, books.BookSummary{
				BookID:      state.BookID,
				UserID:      state.UserID,
				Title:       state.BookTitle,
				CurrentStep: state.CurrentStep,
			})
		}
	}
	result := pagination.NewPageResult(summaries, len(summaries), page.Page, page.PageSize)
	return &result, nil
}

type fakeProps struct {
	images map[string]string
}

func (p *fakeProps) Handler() *props.Handler { return nil }

func (p *fakeProps) List(
	context.Context,
	uuid.UUID,
	pagination.PageRequest,
	props.Filters,
) (*pagination.PageResult[props.Prop], error) {
	return nil, props.ErrNotFound
}

func (p *fakeProps) Find(context.Context, props.Scope) (*props.Prop, error) {
	return nil, props.ErrNotFound
}

func (p *fakeProps) ImageURL(_ context.Context, scope props.Scope) (string, error) {
	if url, ok := p.images[scope.EntityType+"/"+scope.Name]; ok {
		return url, nil
	}
	return "", props.ErrNotFound
}

type fakeMemory struct {
	hits map[string]string
}

func (m *fakeMemory) Search(_ context.Context, q memory.Query) ([]memory.Hit, error) {
	if url, ok := m.hits[q.Text]; ok {
		return []memory.Hit{{ID: q.Text, Score: 1, ImageURL: url}}, nil
	}
	return nil, nil
}

type recordSink struct {
	published int
	last      *books.BookState
}

func (s *recordSink) Publish(_ context.Context, state *books.BookState) {
	s.published++
	s.last = state
}

type fixture struct {
	controller *books.Controller
	store      *fakeStore
	props      *fakeProps
	memory     *fakeMemory
	sink       *recordSink
	userID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeStore()
	propSys := &fakeProps{images: map[string]string{}}
	searcher := &fakeMemory{hits: map[string]string{}}
	sink := &recordSink{}

	controller := books.NewController(
		store,
		books.NewEnricher(propSys, searcher, logger),
		sink,
		logger,
		pagination.Config{DefaultPageSize: 10, MaxPageSize: 50},
	)

	return &fixture{
		controller: controller,
		store:      store,
		props:      propSys,
		memory:     searcher,
		sink:       sink,
		userID:     uuid.New(),
	}
}

func (f *fixture) initialize(t *testing.T, cmd books.InitializeCommand) *books.BookState {
	t.Helper()

	result, err := f.controller.Initialize(context.Background(), f.userID, cmd)
	if err != nil {
		t.Fatalf("Initialize returned %v", err)
	}
	return result.State
}

func TestInitializeCreatesSkeleton(t *testing.T) {
	f := newFixture(t)

	result, err := f.controller.Initialize(context.Background(), f.userID, books.InitializeCommand{
		BookTitle:   "Luna Takes Flight",
		BookConcept: "A shy fox named Luna learns to fly. Themes of courage and friendship.",
	})
	if err != nil {
		t.Fatalf("Initialize returned %v", err)
	}

	if !result.Created {
		t.Error("Created = false, want true")
	}

	state := result.State
	if len(state.Steps) != books.StepCount {
		t.Fatalf("steps = %d, want %d", len(state.Steps), books.StepCount)
	}
	if state.CurrentStep != books.StepStoryPlanning {
		t.Errorf("CurrentStep = %d, want 1", state.CurrentStep)
	}
	if got := state.Step(1).Status; got != books.StatusInProgress {
		t.Errorf("step 1 status = %s, want in_progress", got)
	}
	for n := 2; n <= books.StepCount; n++ {
		if got := state.Step(n).Status; got != books.StatusPending {
			t.Errorf("step %d status = %s, want pending", n, got)
		}
	}

	seed := state.Step(1).Data
	if seed == nil {
		t.Fatal("step 1 not seeded from concept")
	}
	if seed["premise"] != "A shy fox named Luna learns to fly." {
		t.Errorf("seeded premise = %v", seed["premise"])
	}

	if f.sink.published != 1 {
		t.Errorf("published = %d, want 1", f.sink.published)
	}
}

func TestInitializePictureBookResolution(t *testing.T) {
	t.Run("inferred from concept", func(t *testing.T) {
		f := newFixture(t)
		state := f.initialize(t, books.InitializeCommand{
			BookConcept: "An illustrated picture book about a brave snail.",
		})

		if !state.PictureBook() {
			t.Error("PictureBook() = false, want inferred true")
		}
	})

	t.Run("explicit flag wins over concept", func(t *testing.T) {
		f := newFixture(t)
		state := f.initialize(t, books.InitializeCommand{
			BookConcept:   "An illustrated picture book about a brave snail.",
			IsPictureBook: ptr(false),
		})

		if state.IsPictureBook == nil || *state.IsPictureBook {
			t.Errorf("IsPictureBook = %v, want explicit false", state.IsPictureBook)
		}
	})

	t.Run("unset without hints", func(t *testing.T) {
		f := newFixture(t)
		state := f.initialize(t, books.InitializeCommand{
			BookConcept: "A middle-grade chapter novel about pirates.",
		})

		if state.IsPictureBook != nil {
			t.Errorf("IsPictureBook = %v, want unset", state.IsPictureBook)
		}
	})
}

func TestInitializeResumesExisting(t *testing.T) {
	f := newFixture(t)
	existing := f.initialize(t, books.InitializeCommand{BookTitle: "Luna Takes Flight"})
	savesBefore := f.store.saves

	result, err := f.controller.Initialize(context.Background(), f.userID, books.InitializeCommand{
		BookID:    ptr(existing.BookID),
		BookTitle: "A Different Title",
	})
	if err != nil {
		t.Fatalf("Initialize returned %v", err)
	}

	if result.Created {
		t.Error("Created = true, want false on resume")
	}
	if result.State.BookTitle != "Luna Takes Flight" {
		t.Errorf("BookTitle = %q, resume must not overwrite", result.State.BookTitle)
	}
	if f.store.saves != savesBefore {
		t.Errorf("saves = %d, want unchanged %d", f.store.saves, savesBefore)
	}
	if f.sink.published != 2 {
		t.Errorf("published = %d, want snapshot on resume", f.sink.published)
	}
}

func TestUpdateStepCascadesStatuses(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{BookTitle: "Luna Takes Flight"})

	updated, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepChapterWriting,
		books.Payload{
			"chapters": []any{
				map[string]any{"chapterNumber": float64(1), "title": "The Meadow"},
			},
		},
	)
	if err != nil {
		t.Fatalf("UpdateStep returned %v", err)
	}

	if got := updated.Step(1).Status; got != books.StatusApproved {
		t.Errorf("step 1 status = %s, want approved", got)
	}
	if got := updated.Step(2).Status; got != books.StatusApproved {
		t.Errorf("step 2 status = %s, want approved", got)
	}
	if got := updated.Step(3).Status; got != books.StatusCompleted {
		t.Errorf("step 3 status = %s, want completed", got)
	}
	if got := updated.Step(4).Status; got != books.StatusPending {
		t.Errorf("step 4 status = %s, want pending", got)
	}
	if updated.CurrentStep != books.StepChapterWriting {
		t.Errorf("CurrentStep = %d, want 3", updated.CurrentStep)
	}
}

func TestUpdateStepAdoptsMetadata(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{})

	updated, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepStoryPlanning,
		books.Payload{
			"bookTitle":     "Luna Takes Flight",
			"targetAge":     "4-8",
			"isPictureBook": false,
		},
	)
	if err != nil {
		t.Fatalf("UpdateStep returned %v", err)
	}

	if updated.BookTitle != "Luna Takes Flight" {
		t.Errorf("BookTitle = %q", updated.BookTitle)
	}
	if updated.TargetAge != "4-8" {
		t.Errorf("TargetAge = %q", updated.TargetAge)
	}
	if updated.IsPictureBook == nil || *updated.IsPictureBook {
		t.Errorf("IsPictureBook = %v, want resolved false", updated.IsPictureBook)
	}
}

func TestUpdateStepPartialEnvironmentKeepsDescription(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{
		BookTitle:     "Luna Takes Flight",
		IsPictureBook: ptr(false),
	})

	_, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepEnvironmentDesign,
		books.Payload{
			"environments": []any{
				map[string]any{
					"name":        "Forest",
					"description": "A lush ancient forest with a winding river.",
				},
			},
		},
	)
	if err != nil {
		t.Fatalf("UpdateStep returned %v", err)
	}

	updated, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepEnvironmentDesign,
		books.Payload{
			"environments": []any{
				map[string]any{"name": "Forest", "mood": "dark"},
			},
		},
	)
	if err != nil {
		t.Fatalf("UpdateStep returned %v", err)
	}

	envs := updated.Step(books.StepEnvironmentDesign).Data["environments"].([]any)
	if len(envs) != 1 {
		t.Fatalf("environments = %d, want 1", len(envs))
	}
	forest := envs[0].(map[string]any)

	desc, _ := forest["description"].(string)
	if !strings.Contains(desc, "A lush ancient forest with a winding river.") {
		t.Errorf("description lost on partial update: %q", desc)
	}
	if n := strings.Count(desc, "SPATIAL LAYOUT:"); n != 1 {
		t.Errorf("directive appears %d times, want 1", n)
	}
	if forest["mood"] != "dark" {
		t.Errorf("mood = %v, want dark", forest["mood"])
	}
}

func TestUpdateStepFiveCompletesReview(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{BookTitle: "Luna Takes Flight"})

	updated, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepFinalContent,
		books.Payload{
			"chapters": []any{
				map[string]any{"chapterNumber": float64(1), "content": "Luna woke before dawn."},
			},
			"scenes": []any{
				map[string]any{"sceneNumber": float64(1), "text": "Luna stretches."},
			},
		},
	)
	if err != nil {
		t.Fatalf("UpdateStep returned %v", err)
	}

	review := updated.Step(books.StepFinalReview)
	if review.Status != books.StatusCompleted {
		t.Errorf("review status = %s, want completed", review.Status)
	}
	if review.Data == nil {
		t.Fatal("review data not populated")
	}
	if review.Data["totalScenes"] != 1 {
		t.Errorf("totalScenes = %v, want 1", review.Data["totalScenes"])
	}
	if updated.CurrentStep != books.StepFinalReview {
		t.Errorf("CurrentStep = %d, want 6", updated.CurrentStep)
	}
}

func TestUpdateStepGateRejectsMissingImages(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{IsPictureBook: ptr(true)})
	savesBefore := f.store.saves

	_, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepCharacterCreation,
		books.Payload{
			"characters": []any{
				map[string]any{"name": "Luna"},
				map[string]any{"name": "Orin", "imageUrl": "https://cdn.example.com/orin.png"},
			},
		},
	)

	var missing *books.MissingImagesError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingImagesError", err)
	}
	if len(missing.Entities) != 1 || missing.Entities[0] != "Luna" {
		t.Errorf("Entities = %v, want [Luna]", missing.Entities)
	}
	if f.store.saves != savesBefore {
		t.Error("gate rejection must not persist state")
	}
}

func TestUpdateStepEnrichmentSatisfiesGate(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{IsPictureBook: ptr(true)})

	f.props.images["character/Luna"] = "https://cdn.example.com/luna.png"
	f.memory.hits["Orin"] = "https://cdn.example.com/orin.png"

	updated, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepCharacterCreation,
		books.Payload{
			"characters": []any{
				map[string]any{"name": "Luna"},
				map[string]any{"name": "Orin"},
			},
		},
	)
	if err != nil {
		t.Fatalf("UpdateStep returned %v", err)
	}

	for i, want := range []string{
		"https://cdn.example.com/luna.png",
		"https://cdn.example.com/orin.png",
	} {
		entity := updated.Step(2).Data.Entities("characters")[i]
		if entity["imageUrl"] != want {
			t.Errorf("character %d imageUrl = %v, want %q", i, entity["imageUrl"], want)
		}
	}
}

func TestUpdateStepValidation(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{})
	savesBefore := f.store.saves

	_, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepStoryPlanning,
		books.Payload{"publisher": "nobody"},
	)

	var verr *books.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if f.store.saves != savesBefore {
		t.Error("invalid payload must not persist state")
	}
}

func TestUpdateStepGuards(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{})

	_, err := f.controller.UpdateStep(context.Background(), f.userID, state.BookID, 0, books.Payload{"premise": "x"})
	if !errors.Is(err, books.ErrInvalidStep) {
		t.Errorf("step 0: err = %v, want ErrInvalidStep", err)
	}

	_, err = f.controller.UpdateStep(context.Background(), f.userID, state.BookID, 1, books.Payload{})
	if !errors.Is(err, books.ErrMissingData) {
		t.Errorf("empty payload: err = %v, want ErrMissingData", err)
	}

	_, err = f.controller.UpdateStep(context.Background(), f.userID, uuid.New(), 1, books.Payload{"premise": "x"})
	if !errors.Is(err, books.ErrNotFound) {
		t.Errorf("unknown book: err = %v, want ErrNotFound", err)
	}
}

func TestApproveStep(t *testing.T) {
	t.Run("approval advances", func(t *testing.T) {
		f := newFixture(t)
		state := f.initialize(t, books.InitializeCommand{})

		result, err := f.controller.ApproveStep(
			context.Background(), f.userID, state.BookID, 1, true, "",
		)
		if err != nil {
			t.Fatalf("ApproveStep returned %v", err)
		}

		if !result.StepApproved {
			t.Error("StepApproved = false")
		}
		if result.CurrentStep != 2 {
			t.Errorf("CurrentStep = %d, want 2", result.CurrentStep)
		}
		if got := result.State.Step(1).Status; got != books.StatusApproved {
			t.Errorf("step 1 status = %s, want approved", got)
		}
	})

	t.Run("rejection parks in needs_revision", func(t *testing.T) {
		f := newFixture(t)
		state := f.initialize(t, books.InitializeCommand{})

		result, err := f.controller.ApproveStep(
			context.Background(), f.userID, state.BookID, 1, false, "make the fox braver",
		)
		if err != nil {
			t.Fatalf("ApproveStep returned %v", err)
		}

		step := result.State.Step(1)
		if step.Status != books.StatusNeedsRevision {
			t.Errorf("status = %s, want needs_revision", step.Status)
		}
		if step.Feedback != "make the fox braver" {
			t.Errorf("Feedback = %q", step.Feedback)
		}
		if result.CurrentStep != 1 {
			t.Errorf("CurrentStep = %d, want 1", result.CurrentStep)
		}
	})

	t.Run("pointer capped at final step", func(t *testing.T) {
		f := newFixture(t)
		state := f.initialize(t, books.InitializeCommand{})

		result, err := f.controller.ApproveStep(
			context.Background(), f.userID, state.BookID, books.StepFinalReview, true, "",
		)
		if err != nil {
			t.Fatalf("ApproveStep returned %v", err)
		}
		if result.CurrentStep != books.StepFinalReview {
			t.Errorf("CurrentStep = %d, want capped at 6", result.CurrentStep)
		}
	})
}

func TestRegenerateKeepsData(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{})

	if _, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepChapterWriting,
		books.Payload{
			"chapters": []any{map[string]any{"chapterNumber": float64(1), "title": "The Meadow"}},
		},
	); err != nil {
		t.Fatalf("UpdateStep returned %v", err)
	}

	regenerated, err := f.controller.Regenerate(
		context.Background(), f.userID, state.BookID, books.StepChapterWriting,
	)
	if err != nil {
		t.Fatalf("Regenerate returned %v", err)
	}

	step := regenerated.Step(books.StepChapterWriting)
	if step.Status != books.StatusInProgress {
		t.Errorf("status = %s, want in_progress", step.Status)
	}
	if step.Data == nil {
		t.Error("regenerate must not discard accumulated data")
	}
	if regenerated.CurrentStep != books.StepChapterWriting {
		t.Errorf("CurrentStep = %d, want 3", regenerated.CurrentStep)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{BookTitle: "Luna Takes Flight"})

	first, err := f.controller.Finalize(context.Background(), f.userID, state.BookID)
	if err != nil {
		t.Fatalf("Finalize returned %v", err)
	}
	stamp := first.Step(books.StepFinalReview).Data["completedAt"]

	second, err := f.controller.Finalize(context.Background(), f.userID, state.BookID)
	if err != nil {
		t.Fatalf("second Finalize returned %v", err)
	}

	review := second.Step(books.StepFinalReview)
	if review.Status != books.StatusCompleted {
		t.Errorf("review status = %s, want completed", review.Status)
	}
	if review.Data["completedAt"] != stamp {
		t.Errorf("completedAt shifted: %v -> %v", stamp, review.Data["completedAt"])
	}
	for n := 1; n < books.StepFinalReview; n++ {
		if got := second.Step(n).Status; got != books.StatusApproved {
			t.Errorf("step %d status = %s, want approved", n, got)
		}
	}
}

func TestListNormalizesPaging(t *testing.T) {
	f := newFixture(t)
	f.initialize(t, books.InitializeCommand{BookTitle: "Luna Takes Flight"})

	result, err := f.controller.List(
		context.Background(), f.userID, pagination.PageRequest{}, books.Filters{},
	)
	if err != nil {
		t.Fatalf("List returned %v", err)
	}

	if result.Page != 1 {
		t.Errorf("Page = %d, want normalized 1", result.Page)
	}
	if result.PageSize != 10 {
		t.Errorf("PageSize = %d, want configured default 10", result.PageSize)
	}
	if len(result.Data) != 1 {
		t.Errorf("Data = %d entries, want 1", len(result.Data))
	}
}

func TestSaveConflictPropagates(t *testing.T) {
	f := newFixture(t)
	state := f.initialize(t, books.InitializeCommand{})
	published := f.sink.published

	f.store.saveErr = books.ErrConflict

	_, err := f.controller.UpdateStep(
		context.Background(),
		f.userID,
		state.BookID,
		books.StepStoryPlanning,
		books.Payload{"premise": "A fox learns to fly."},
	)
	if !errors.Is(err, books.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	if f.sink.published != published {
		t.Error("conflicted update must not publish a snapshot")
	}
}
