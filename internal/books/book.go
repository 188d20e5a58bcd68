// Package books implements the book-creation workflow engine: a fixed
// six-step content pipeline (story planning, character creation, chapter
// writing, environment design, final content, final review) driven by an
// external agent issuing discrete actions against a persisted workflow
// document.
package books

import (
	"time"

	"github.com/google/uuid"
)

// StepStatus tracks the lifecycle of a single workflow step.
type StepStatus string

// Step lifecycle states. Transitions move forward through
// pending to in_progress to completed to approved, or sideways to
// needs_revision; only Regenerate moves a step backward.
const (
	StatusPending       StepStatus = "pending"
	StatusInProgress    StepStatus = "in_progress"
	StatusCompleted     StepStatus = "completed"
	StatusApproved      StepStatus = "approved"
	StatusNeedsRevision StepStatus = "needs_revision"
)

// StepCount is the fixed number of workflow steps.
const StepCount = 6

// Workflow step numbers.
const (
	StepStoryPlanning     = 1
	StepCharacterCreation = 2
	StepChapterWriting    = 3
	StepEnvironmentDesign = 4
	StepFinalContent      = 5
	StepFinalReview       = 6
)

var stepNames = map[int]string{
	StepStoryPlanning:     "Story Planning",
	StepCharacterCreation: "Character Creation",
	StepChapterWriting:    "Chapter Writing",
	StepEnvironmentDesign: "Environment Design",
	StepFinalContent:      "Final Chapter Content",
	StepFinalReview:       "Final Review",
}

// StepName returns the display name for a step number, or an empty
// string for numbers outside 1..6.
func StepName(n int) string {
	return stepNames[n]
}

// ValidStep reports whether n is a valid step number.
func ValidStep(n int) bool {
	return n >= 1 && n <= StepCount
}

var statusRank = map[StepStatus]int{
	StatusPending:       0,
	StatusInProgress:    1,
	StatusNeedsRevision: 1,
	StatusCompleted:     2,
	StatusApproved:      3,
}

// Step is one of the six fixed stages of book creation. Data carries the
// stage-specific payload and is absent until the first update.
type Step struct {
	StepNumber int        `json:"stepNumber"`
	StepName   string     `json:"stepName"`
	Status     StepStatus `json:"status"`
	Data       Payload    `json:"data,omitempty"`
	Feedback   string     `json:"feedback,omitempty"`
}

// Raise moves the step status forward to target. Backward moves are
// ignored so a later partial update can never demote an approved step;
// needs_revision is reachable from any state as a sideways move.
func (s *Step) Raise(target StepStatus) {
	if target == StatusNeedsRevision {
		s.Status = target
		return
	}
	if statusRank[target] >= statusRank[s.Status] {
		s.Status = target
	}
}

// BookState is the workflow document: the single unit of persistence and
// identity for one book's end-to-end creation progress.
type BookState struct {
	BookID        uuid.UUID `json:"bookId"`
	UserID        uuid.UUID `json:"userId"`
	BookTitle     string    `json:"bookTitle,omitempty"`
	BookConcept   string    `json:"bookConcept,omitempty"`
	TargetAge     string    `json:"targetAge,omitempty"`
	IsPictureBook *bool     `json:"isPictureBook,omitempty"`
	CurrentStep   int       `json:"currentStep"`
	Steps         []Step    `json:"steps"`
	Revision      int64     `json:"revision"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewBookState constructs the six-step skeleton with step 1 in progress
// and the remaining steps pending.
func NewBookState(bookID, userID uuid.UUID, now time.Time) *BookState {
	steps := make([]Step, StepCount)
	for i := range steps {
		n := i + 1
		steps[i] = Step{
			StepNumber: n,
			StepName:   stepNames[n],
			Status:     StatusPending,
		}
	}
	steps[0].Status = StatusInProgress

	return &BookState{
		BookID:      bookID,
		UserID:      userID,
		CurrentStep: StepStoryPlanning,
		Steps:       steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Step returns the record for the given step number, or nil when the
// number is out of range.
func (b *BookState) Step(n int) *Step {
	if !ValidStep(n) || len(b.Steps) < n {
		return nil
	}
	return &b.Steps[n-1]
}

// PictureBook reports whether the workflow has been resolved to a
// picture book. Unset is treated as false.
func (b *BookState) PictureBook() bool {
	return b.IsPictureBook != nil && *b.IsPictureBook
}

// SetPictureBook resolves the tri-state picture-book flag. Once resolved
// the flag never silently reverts to unset; callers pass the definite
// value and it sticks.
func (b *BookState) SetPictureBook(v bool) {
	b.IsPictureBook = &v
}

// BookSummary is the listing projection of a workflow document, read
// from the denormalized slot-0 columns without deserializing the full
// embedded state.
type BookSummary struct {
	BookID        uuid.UUID `json:"bookId"`
	UserID        uuid.UUID `json:"userId"`
	Title         string    `json:"title"`
	Progress      string    `json:"progress"`
	CurrentStep   int       `json:"currentStep"`
	IsPictureBook *bool     `json:"isPictureBook,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
