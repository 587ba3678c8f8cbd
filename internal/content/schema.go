package content

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// moduleDocumentSchema describes the shape of a static module document.
// Individual questions are checked loosely; Sanitize rejects bad ones later.
const moduleDocumentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["module"],
  "properties": {
    "module": {
      "type": "object",
      "required": ["slug"],
      "properties": {
        "slug": {"type": "string", "minLength": 1},
        "shortSlug": {"type": "string"},
        "tier": {"type": "integer"},
        "order": {"type": "integer"},
        "prerequisites": {"type": ["array", "null"], "items": {"type": "string"}},
        "thresholds": {
          "type": "object",
          "properties": {
            "requiredLessons": {"type": "integer", "minimum": 0},
            "requiredQuestions": {"type": "integer", "minimum": 0},
            "passingScore": {"type": "integer", "minimum": 0, "maximum": 100}
          }
        }
      }
    },
    "lessons": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["order"],
        "properties": {
          "id": {"type": "string"},
          "order": {"type": "integer"},
          "title": {"type": "string"}
        }
      }
    },
    "quiz": {
      "type": "object",
      "properties": {
        "questions": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "properties": {
              "id": {"type": "string"},
              "question": {"type": "string"},
              "choices": {"type": ["array", "null"], "items": {"type": "string"}},
              "correctAnswerIndex": {"type": ["integer", "null"]}
            }
          }
        }
      }
    }
  }
}`

// DocumentValidator checks static module documents against the module
// document schema.
type DocumentValidator struct {
	schema *gojsonschema.Schema
}

// NewDocumentValidator compiles the module document schema.
func NewDocumentValidator() (*DocumentValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(moduleDocumentSchema))
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return &DocumentValidator{schema: schema}, nil
}

// Validate reports every schema violation in data as a single error.
func (v *DocumentValidator) Validate(data []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid module document: %s", strings.Join(msgs, "; "))
}
