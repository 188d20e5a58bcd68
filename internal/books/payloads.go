package books

import (
	"fmt"
	"maps"
	"strings"
)

// Payload is a step's stage-specific data in its decoded JSON form. The
// shape is one of six closed variants keyed by step number, enforced
// against the embedded schemas before any payload enters the engine.
type Payload map[string]any

// Collection keys recognized by the smart merge and by the image gate.
const (
	KeyCharacters   = "characters"
	KeyEnvironments = "environments"
	KeyChapters     = "chapters"
	KeyScenes       = "scenes"
)

// Payload field names shared across variants.
const (
	fieldName          = "name"
	fieldImageURL      = "imageUrl"
	fieldChapterNumber = "chapterNumber"
	fieldSceneNumber   = "sceneNumber"
)

// imageCollections maps image-bearing steps to the collection the
// picture-book gate and enrichment operate on.
var imageCollections = map[int]string{
	StepCharacterCreation: KeyCharacters,
	StepEnvironmentDesign: KeyEnvironments,
	StepFinalContent:      KeyScenes,
}

// entityTypes maps image-bearing steps to the prop entity type used for
// asset lookups.
var entityTypes = map[int]string{
	StepCharacterCreation: "character",
	StepEnvironmentDesign: "environment",
}

// Clone returns a deep copy of the payload. Mutating transforms operate
// on clones so the loaded document is never aliased.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return clonePayloadValue(map[string]any(p)).(map[string]any)
}

func clonePayloadValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		maps.Copy(out, t)
		for k, nested := range out {
			switch nested.(type) {
			case map[string]any, []any:
				out[k] = clonePayloadValue(nested)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = clonePayloadValue(item)
		}
		return out
	default:
		return v
	}
}

// Entities returns the collection under key as a slice of mutable entity
// maps. Entries that are not objects are skipped.
func (p Payload) Entities(key string) []map[string]any {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}

	entities := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			entities = append(entities, m)
		}
	}
	return entities
}

// Chapter is the typed view of one chapter entry in the step-3 and
// step-5 payloads, used when exchanging content with chapter-slot rows.
type Chapter struct {
	ChapterNumber int
	Title         string
	Content       string
}

// Chapters extracts the typed chapter list from the payload, skipping
// entries without a usable chapter number.
func (p Payload) Chapters() []Chapter {
	var chapters []Chapter
	for _, e := range p.Entities(KeyChapters) {
		n, ok := asInt(e[fieldChapterNumber])
		if !ok || n < 1 {
			continue
		}
		chapters = append(chapters, Chapter{
			ChapterNumber: n,
			Title:         stringField(e, "title"),
			Content:       stringField(e, "content"),
		})
	}
	return chapters
}

// SetChapter writes a chapter back into the payload's chapter list,
// matching by chapter number and appending when absent. The list is
// re-sorted by the caller via sortChapters.
func (p Payload) SetChapter(c Chapter) {
	raw, _ := p[KeyChapters].([]any)
	for _, item := range raw {
		e, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if n, ok := asInt(e[fieldChapterNumber]); ok && n == c.ChapterNumber {
			if c.Title != "" {
				e["title"] = c.Title
			}
			if c.Content != "" {
				e["content"] = c.Content
			}
			return
		}
	}

	entry := map[string]any{fieldChapterNumber: c.ChapterNumber}
	if c.Title != "" {
		entry["title"] = c.Title
	}
	if c.Content != "" {
		entry["content"] = c.Content
	}
	p[KeyChapters] = append(raw, entry)
}

// entityLabel identifies an entity in gate errors and log output:
// characters and environments by name, scenes by number.
func entityLabel(e map[string]any) string {
	if name := stringField(e, fieldName); name != "" {
		return name
	}
	if n, ok := asInt(e[fieldSceneNumber]); ok {
		return fmt.Sprintf("scene %d", n)
	}
	return "unnamed"
}

func stringField(e map[string]any, key string) string {
	s, _ := e[key].(string)
	return s
}

func hasImage(e map[string]any) bool {
	return strings.TrimSpace(stringField(e, fieldImageURL)) != ""
}

// asInt normalizes JSON numbers (which decode as float64) and native
// ints to an int value.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
