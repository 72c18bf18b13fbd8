package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidFeedback is returned when the model output is not usable feedback
var ErrInvalidFeedback = errors.New("invalid feedback")

const tipsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["type", "tip"],
    "properties": {
      "type": {"enum": ["good", "improve"]},
      "tip": {"type": "string"},
      "explanation": {"type": "string"}
    }
  }
}`

const categorySchema = `{
  "type": "object",
  "required": ["score", "tips"],
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "tips": ` + tipsSchema + `
  }
}`

const listsSchema = `{"type": "array", "items": {"type": "string"}}`

// Schema is the JSON schema every stored Feedback satisfies
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["overallScore", "ATS", "toneAndStyle", "content", "structure", "skills"],
  "properties": {
    "overallScore": {"type": "number", "minimum": 0, "maximum": 100},
    "ATS": ` + categorySchema + `,
    "toneAndStyle": ` + categorySchema + `,
    "content": ` + categorySchema + `,
    "structure": ` + categorySchema + `,
    "skills": ` + categorySchema + `,
    "summary": {
      "type": "object",
      "properties": {
        "strengths": ` + listsSchema + `,
        "weaknesses": ` + listsSchema + `,
        "recommendations": ` + listsSchema + `
      }
    },
    "keywords": {
      "type": "object",
      "properties": {
        "found": ` + listsSchema + `,
        "missing": ` + listsSchema + `,
        "suggested": ` + listsSchema + `
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(Schema))
})

// Validate checks a JSON document against Schema
func Validate(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("feedback schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFeedback, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: schema validation failed: %s", ErrInvalidFeedback, strings.Join(msgs, "; "))
}

// ParseFeedback decodes model output into Feedback. The JSON may be wrapped
// in a markdown code fence or surrounded by prose.
func ParseFeedback(text string) (*Feedback, error) {
	data := []byte(extractJSON(text))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidFeedback)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	var fb Feedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeedback, err)
	}
	return &fb, nil
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
