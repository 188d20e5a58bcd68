package books

import (
	"fmt"
	"time"
)

// Page estimate constants. Picture books render one page per scene plus
// front and back matter; prose books estimate a fixed page count per
// chapter.
const (
	frontBackMatterPages = 4
	pagesPerProseChapter = 6
)

// ComputeSummary derives the step 6 final-review payload from the
// accumulated content of steps 2, 4, and 5. The computation is a pure
// recount: calling it repeatedly over the same state yields identical
// data, which is what makes finalize idempotent. An existing completedAt
// stamp is preserved so re-finalizing does not shift it.
func ComputeSummary(state *BookState, now time.Time) Payload {
	characters := len(collectionEntities(state, StepCharacterCreation, KeyCharacters))
	environments := len(collectionEntities(state, StepEnvironmentDesign, KeyEnvironments))
	scenes := len(collectionEntities(state, StepFinalContent, KeyScenes))
	chapters := len(collectionEntities(state, StepFinalContent, KeyChapters))
	if chapters == 0 {
		chapters = len(collectionEntities(state, StepChapterWriting, KeyChapters))
	}

	completedAt := now.UTC().Format(time.RFC3339)
	if existing := state.Step(StepFinalReview); existing != nil && existing.Data != nil {
		if prior := stringField(existing.Data, "completedAt"); prior != "" {
			completedAt = prior
		}
	}

	return Payload{
		"totalCharacters":    characters,
		"totalEnvironments":  environments,
		"totalScenes":        scenes,
		"totalChapters":      chapters,
		"estimatedPageCount": estimatePages(state.PictureBook(), chapters, scenes),
		"summary":            summaryText(state, characters, environments, scenes, chapters),
		"completedAt":        completedAt,
	}
}

func estimatePages(pictureBook bool, chapters, scenes int) int {
	if pictureBook {
		return scenes + frontBackMatterPages
	}
	return chapters*pagesPerProseChapter + frontBackMatterPages
}

func summaryText(state *BookState, characters, environments, scenes, chapters int) string {
	title := state.BookTitle
	if title == "" {
		title = "Untitled book"
	}
	return fmt.Sprintf(
		"%s: %d chapters, %d characters, %d environments, %d illustrated scenes.",
		title, chapters, characters, environments, scenes,
	)
}

func collectionEntities(state *BookState, stepNumber int, key string) []map[string]any {
	step := state.Step(stepNumber)
	if step == nil || step.Data == nil {
		return nil
	}
	return step.Data.Entities(key)
}
