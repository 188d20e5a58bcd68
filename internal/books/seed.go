package books

import (
	"regexp"
	"strings"

	"github.com/JaimeStill/fable/pkg/formatting"
)

// Concept seeding is a best-effort heuristic, not a contract: it
// pre-populates step 1 from the free-text concept the agent passed to
// initialize. Anything it misses the agent supplies through a normal
// step 1 update.

var (
	ageRangePattern  = regexp.MustCompile(`(?i)\bages?\s+(\d{1,2})\s*(?:-|to|–)\s*(\d{1,2})\b`)
	ageSinglePattern = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})[\s-]*year[\s-]*olds?\b`)
	themesPattern    = regexp.MustCompile(`(?i)\bthemes?\s*(?:of|:)\s*([^.;\n]+)`)
	pictureBookWords = regexp.MustCompile(`(?i)\bpicture\s*book\b|\billustrated\b`)
)

type conceptSeed struct {
	Premise   string   `json:"premise"`
	Themes    []string `json:"themes"`
	TargetAge string   `json:"targetAge"`
}

// SeedFromConcept extracts a step 1 payload from a free-text book
// concept. A fenced or bare JSON block wins when present; otherwise
// regex heuristics pull out a premise sentence, themes, and an age hint.
// Returns nil when the concept yields nothing usable.
func SeedFromConcept(concept string) Payload {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return nil
	}

	if seed, err := formatting.Parse[conceptSeed](concept); err == nil {
		return seedPayload(seed)
	}

	seed := conceptSeed{
		Premise:   firstSentence(concept),
		TargetAge: extractAge(concept),
		Themes:    extractThemes(concept),
	}
	return seedPayload(seed)
}

// ConceptSuggestsPictureBook reports whether the concept text hints at
// a picture-book workflow. Only used when the caller left the flag
// unset; a definite flag always wins.
func ConceptSuggestsPictureBook(concept string) bool {
	return pictureBookWords.MatchString(concept)
}

func seedPayload(seed conceptSeed) Payload {
	p := Payload{}
	if seed.Premise != "" {
		p["premise"] = seed.Premise
	}
	if seed.TargetAge != "" {
		p["targetAge"] = seed.TargetAge
	}
	if len(seed.Themes) > 0 {
		themes := make([]any, len(seed.Themes))
		for i, t := range seed.Themes {
			themes[i] = t
		}
		p["themes"] = themes
	}
	if len(p) == 0 {
		return nil
	}
	return p
}

func firstSentence(text string) string {
	for _, stop := range []string{". ", "!\n", "?\n", "\n"} {
		if i := strings.Index(text, stop); i > 0 {
			return strings.TrimSpace(text[:i+1])
		}
	}
	if len(text) > 200 {
		return strings.TrimSpace(text[:200])
	}
	return text
}

func extractAge(text string) string {
	if m := ageRangePattern.FindStringSubmatch(text); m != nil {
		return m[1] + "-" + m[2]
	}
	if m := ageSinglePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractThemes(text string) []string {
	m := themesPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	raw := strings.FieldsFunc(m[1], func(r rune) bool {
		return r == ',' || r == '/'
	})

	var themes []string
	for _, t := range raw {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "and "))
		if t != "" {
			themes = append(themes, t)
		}
	}
	return themes
}
