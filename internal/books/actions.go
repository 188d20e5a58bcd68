package books

import (
	"time"
)

// Pure state transitions for the five workflow actions. Each takes the
// loaded document and produces the next document in place; persistence
// and snapshot emission live in the controller so these stay directly
// testable.

// applyStepUpdate installs merged step data, cascades statuses (target
// completed, all earlier steps approved, later steps untouched), and
// advances the step pointer. Accepting step 5 auto-populates and
// completes the final review, jumping the pointer straight to step 6.
func applyStepUpdate(state *BookState, stepNumber int, merged Payload, now time.Time) {
	step := state.Step(stepNumber)
	step.Data = merged
	step.Raise(StatusCompleted)

	for n := 1; n < stepNumber; n++ {
		state.Step(n).Raise(StatusApproved)
	}

	state.CurrentStep = stepNumber
	adoptMetadata(state, merged)

	if stepNumber == StepFinalContent {
		completeReview(state, now)
	}

	state.UpdatedAt = now
}

// applyApprove records the user-facing approval signal. Approval
// advances the pointer (capped at step 6); rejection parks the step in
// needs_revision with the reviewer's feedback and does not advance.
func applyApprove(state *BookState, stepNumber int, approved bool, feedback string, now time.Time) {
	step := state.Step(stepNumber)

	if approved {
		step.Raise(StatusApproved)
		step.Feedback = ""
		state.CurrentStep = min(stepNumber+1, StepCount)
	} else {
		step.Raise(StatusNeedsRevision)
		step.Feedback = feedback
	}

	state.UpdatedAt = now
}

// applyRegenerate moves a step back to in_progress without clearing its
// data; the next update overwrites through the merge. This is the one
// sanctioned backward transition, and it may also move the step pointer
// backward.
func applyRegenerate(state *BookState, stepNumber int, now time.Time) {
	state.Step(stepNumber).Status = StatusInProgress
	state.CurrentStep = stepNumber
	state.UpdatedAt = now
}

// applyFinalize recomputes the final review from accumulated content,
// completes step 6, and approves everything before it. The recompute is
// idempotent: repeated finalization never accumulates counts.
func applyFinalize(state *BookState, now time.Time) {
	for n := 1; n < StepFinalReview; n++ {
		state.Step(n).Raise(StatusApproved)
	}
	completeReview(state, now)
	state.UpdatedAt = now
}

func completeReview(state *BookState, now time.Time) {
	review := state.Step(StepFinalReview)
	review.Data = ComputeSummary(state, now)
	review.Raise(StatusCompleted)
	state.CurrentStep = StepFinalReview
}

// adoptMetadata lifts book metadata carried on a step payload onto the
// document. Only the story-planning variant carries these fields; a
// resolved picture-book flag never reverts to unset because absent and
// null fields are skipped.
func adoptMetadata(state *BookState, p Payload) {
	if title := stringField(p, "bookTitle"); title != "" {
		state.BookTitle = title
	}
	if age := stringField(p, "targetAge"); age != "" {
		state.TargetAge = age
	}
	if v, ok := p["isPictureBook"].(bool); ok {
		state.SetPictureBook(v)
	}
	if premise := stringField(p, "premise"); premise != "" && state.BookConcept == "" {
		state.BookConcept = premise
	}
}
