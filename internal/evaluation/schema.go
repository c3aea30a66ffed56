// Package evaluation scores extracted candidate profiles against a job
// description with a single structured LLM call per candidate.
package evaluation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// evaluationSchema is the shape contract for the LLM's analysis response.
// It is deliberately lenient about numeric fields (LLMs return numbers as
// strings) but strict about the presence of every field the pipeline needs.
const evaluationSchema = `{
  "type": "object",
  "required": ["name", "fit_score", "score_breakdown", "reasoning", "confidence_score", "outreach_message"],
  "properties": {
    "name": {"type": "string"},
    "linkedin_url": {"type": "string"},
    "fit_score": {"type": ["number", "string", "null"]},
    "score_breakdown": {
      "type": "object",
      "additionalProperties": {"type": ["number", "string", "null"]}
    },
    "reasoning": {"type": "string"},
    "confidence_score": {"type": ["number", "string", "null"]},
    "outreach_message": {"type": "string"}
  }
}`

// validateEvaluationJSON checks a raw LLM response against the shape
// contract. A malformed document (or one that is not JSON at all) returns
// an error.
func validateEvaluationJSON(raw string) error {
	schemaLoader := gojsonschema.NewStringLoader(evaluationSchema)
	documentLoader := gojsonschema.NewStringLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}

	if !result.Valid() {
		first := result.Errors()
		if len(first) > 0 {
			return fmt.Errorf("response shape invalid: %s: %s", first[0].Field(), first[0].Description())
		}
		return fmt.Errorf("response shape invalid")
	}
	return nil
}
