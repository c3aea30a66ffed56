package evaluation

import (
	"encoding/json"

	"github.com/synapse-ai/sourcing-agent/internal/llm"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// ParseOutcome tags the result of one attempt to turn an LLM response into
// a CandidateEvaluation.
type ParseOutcome int

// Parse outcomes, in decreasing order of health.
const (
	// ParseSuccess means the response decoded into a usable evaluation.
	ParseSuccess ParseOutcome = iota
	// ParseMalformed means the call succeeded but the body was not the
	// expected JSON object (prose wrapping, truncation, missing fields).
	ParseMalformed
	// ParseTransportError means the LLM call itself failed.
	ParseTransportError
)

// ParseAttempt is the tagged result of one LLM round-trip. Exactly one of
// Evaluation, Raw, or Err carries the payload, matching the Outcome.
type ParseAttempt struct {
	Outcome    ParseOutcome
	Evaluation *types.CandidateEvaluation
	Raw        string
	Err        error
}

// attemptParse classifies one LLM round-trip result. A call error yields
// ParseTransportError; a response that fails the shape contract or JSON
// decoding yields ParseMalformed with the raw text preserved for logging.
func attemptParse(response string, callErr error) ParseAttempt {
	if callErr != nil {
		return ParseAttempt{Outcome: ParseTransportError, Err: callErr}
	}

	cleaned := llm.CleanJSONBlock(response)

	if err := validateEvaluationJSON(cleaned); err != nil {
		return ParseAttempt{Outcome: ParseMalformed, Raw: response, Err: err}
	}

	var eval types.CandidateEvaluation
	if err := json.Unmarshal([]byte(cleaned), &eval); err != nil {
		return ParseAttempt{Outcome: ParseMalformed, Raw: response, Err: err}
	}

	return ParseAttempt{Outcome: ParseSuccess, Evaluation: &eval}
}
