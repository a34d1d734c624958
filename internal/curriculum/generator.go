package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/pathwise/internal/directive"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

const outputSchema = `{
  "type": "object",
  "required": ["title", "modules"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "summary": {"type": "string"},
    "modules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "objective": {"type": "string"},
          "hours": {"type": "number", "minimum": 0},
          "lessons": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["title"],
              "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "resources": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

// JSONGenerator produces a JSON document from instructions and input.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, instructions, input string) (string, error)
}

// Generator turns plan parameters into a stored curriculum.
type Generator struct {
	gen   JSONGenerator
	store *Store
	now   func() time.Time
}

// NewGenerator creates a generator that persists into store.
func NewGenerator(gen JSONGenerator, store *Store) *Generator {
	return &Generator{gen: gen, store: store, now: func() time.Time { return time.Now().UTC() }}
}

// GenerateCurriculum normalizes params, generates a curriculum, validates and stores it, and returns its id.
func (g *Generator) GenerateCurriculum(ctx context.Context, params map[string]string) (string, error) {
	params = Normalize(params)
	req := RequestFrom(params)
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrGeneration, err)
	}
	input, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", model.ErrGeneration, err)
	}

	raw, err := g.gen.GenerateJSON(ctx, buildPrompt(), string(input))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrGeneration, err)
	}
	cur, err := parseOutput(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrGeneration, err)
	}

	rec := Record{
		ID:         uuid.NewString(),
		Goal:       req.Goal,
		Params:     params,
		Curriculum: cur,
		CreatedAt:  g.now(),
	}
	if err := g.store.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrGeneration, err)
	}
	log.Info().Str("id", rec.ID).Str("goal", req.Goal).Int("modules", len(cur.Modules)).Msg("curriculum generated")
	return rec.ID, nil
}

// ValidateDocument checks raw against the curriculum schema.
func ValidateDocument(raw []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(outputSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate curriculum schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)
	return fmt.Errorf("curriculum schema validation failed: %s", strings.Join(errs, "; "))
}

func parseOutput(raw string) (Curriculum, error) {
	doc := []byte(strings.TrimSpace(raw))
	if !json.Valid(doc) {
		start := strings.Index(raw, "{")
		if start < 0 {
			return Curriculum{}, fmt.Errorf("generation output is not valid JSON")
		}
		doc = []byte(raw[start:directive.ObjectEnd(raw, start)])
	}
	if err := ValidateDocument(doc); err != nil {
		return Curriculum{}, err
	}
	var cur Curriculum
	if err := json.Unmarshal(doc, &cur); err != nil {
		return Curriculum{}, fmt.Errorf("parse generation output: %w", err)
	}
	if err := cur.Validate(); err != nil {
		return Curriculum{}, err
	}
	return cur, nil
}

func buildPrompt() string {
	return strings.TrimSpace(`
You design personalised learning paths.
The input is a JSON object with the learner's goal, role, desired outcome, current level and available time.

Rules:
- Output ONLY a JSON object with "title", "summary" and "modules".
- Each module has "title", "objective", "hours" and "lessons"; each lesson has "title", "description" and optional "resources" (URLs).
- Fit the total hours into the available time.
- Pitch the material at the given level and orient it toward the stated outcome for the given role.
`)
}
