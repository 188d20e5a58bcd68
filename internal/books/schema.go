package books

import (
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[int]string{
	StepStoryPlanning:     "schemas/step1_story_planning.json",
	StepCharacterCreation: "schemas/step2_character_creation.json",
	StepChapterWriting:    "schemas/step3_chapter_writing.json",
	StepEnvironmentDesign: "schemas/step4_environment_design.json",
	StepFinalContent:      "schemas/step5_final_content.json",
	StepFinalReview:       "schemas/step6_final_review.json",
}

// stepSchemas holds the compiled payload variant for each step. The
// schemas are closed (additionalProperties: false): unknown fields are
// rejected rather than passed through as untyped blobs.
var stepSchemas = compileSchemas()

func compileSchemas() map[int]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()

	for _, file := range schemaFiles {
		f, err := schemaFS.Open(file)
		if err != nil {
			panic(fmt.Sprintf("open step schema %s: %v", file, err))
		}
		if err := compiler.AddResource(file, f); err != nil {
			panic(fmt.Sprintf("add step schema %s: %v", file, err))
		}
	}

	schemas := make(map[int]*jsonschema.Schema, len(schemaFiles))
	for step, file := range schemaFiles {
		schemas[step] = compiler.MustCompile(file)
	}
	return schemas
}

// ValidatePayload checks an incoming step payload against the step's
// schema variant before it enters the merge pipeline.
func ValidatePayload(stepNumber int, p Payload) error {
	if !ValidStep(stepNumber) {
		return ErrInvalidStep
	}
	if p == nil {
		return ErrMissingData
	}

	if err := stepSchemas[stepNumber].Validate(map[string]any(p)); err != nil {
		return &ValidationError{StepNumber: stepNumber, Detail: err.Error()}
	}
	return nil
}
