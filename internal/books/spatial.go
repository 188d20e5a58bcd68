package books

import "strings"

// Flags recording that spatial directives have been applied, so repeated
// updates stay idempotent.
const (
	flagSpatialEnhancement      = "spatialEnhancementApplied"
	flagPrescriptivePositioning = "prescriptivePositioningApplied"
)

// environmentSpatialDirective is appended to every environment
// description in step 4. Downstream image generation composes spatially
// incoherent scenes without an explicit viewpoint and zone breakdown.
const environmentSpatialDirective = "SPATIAL LAYOUT: Render this environment " +
	"from a top-down or elevated three-quarter view that keeps the full " +
	"ground plane visible. Define distinct zones (foreground, midground, " +
	"background) with clear boundaries, and note any fixed landmarks that " +
	"characters can be positioned against."

// scenePositioningDirective is appended to every scene's illustration
// notes in step 5.
const scenePositioningDirective = "CHARACTER POSITIONING: Place each named " +
	"character at an explicit location within the established environment " +
	"zones (e.g. \"Mira stands in the foreground left, facing the river\"). " +
	"State relative distances between characters and keep positions " +
	"consistent with the previous scene unless the text moves them."

// EnhanceSpatial post-processes environment (step 4) and scene (step 5)
// payloads with standardized spatial-layout directives. Pure data
// transform over a clone; applying it twice appends nothing.
func EnhanceSpatial(p Payload, stepNumber int) Payload {
	switch stepNumber {
	case StepEnvironmentDesign:
		return enhanceEnvironments(p)
	case StepFinalContent:
		return enhanceScenes(p)
	default:
		return p
	}
}

func enhanceEnvironments(p Payload) Payload {
	out := p.Clone()
	if out == nil {
		return p
	}

	for _, env := range out.Entities(KeyEnvironments) {
		appendDirective(env, "description", environmentSpatialDirective)
	}
	out[flagSpatialEnhancement] = true
	return out
}

func enhanceScenes(p Payload) Payload {
	out := p.Clone()
	if out == nil {
		return p
	}

	for _, scene := range out.Entities(KeyScenes) {
		appendDirective(scene, "illustrationNotes", scenePositioningDirective)
	}
	out[flagPrescriptivePositioning] = true
	return out
}

func appendDirective(e map[string]any, field, directive string) {
	current := stringField(e, field)
	if strings.Contains(current, directive) {
		return
	}
	if current == "" {
		e[field] = directive
		return
	}
	e[field] = current + "\n\n" + directive
}
