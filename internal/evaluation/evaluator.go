package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/synapse-ai/sourcing-agent/internal/llm"
	"github.com/synapse-ai/sourcing-agent/internal/prompts"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// fallbackReasoning is the fixed narrative used when every parse tier fails.
const fallbackReasoning = "Could not analyze profile due to LLM processing error"

// Evaluator scores candidates against a job description. Every path through
// Evaluate terminates in a valid CandidateEvaluation; it never returns an
// error to its caller.
type Evaluator struct {
	client  llm.Client
	verbose bool
}

// NewEvaluator creates an evaluator backed by the given LLM client.
func NewEvaluator(client llm.Client, verbose bool) *Evaluator {
	return &Evaluator{client: client, verbose: verbose}
}

// Evaluate analyzes one extracted profile against the job description.
//
// Three tiers, each attempted only if the prior fails:
//  1. structured-JSON LLM call, parsed directly
//  2. plain LLM call with the same prompt, parsed as JSON
//  3. a synthesized neutral evaluation
func (e *Evaluator) Evaluate(ctx context.Context, profile *types.ExtractedProfile, jobDescription string) *types.CandidateEvaluation {
	prompt := buildAnalysisPrompt(profile, jobDescription)

	response, err := e.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	attempt := attemptParse(response, err)
	if attempt.Outcome == ParseSuccess {
		return e.finalize(attempt.Evaluation, profile)
	}
	e.logAttempt(profile.ProfileURL, "structured", attempt)

	response, err = e.client.GenerateContent(ctx, prompt, llm.TierStandard)
	attempt = attemptParse(response, err)
	if attempt.Outcome == ParseSuccess {
		return e.finalize(attempt.Evaluation, profile)
	}
	e.logAttempt(profile.ProfileURL, "plain", attempt)

	return neutralEvaluation(profile)
}

func (e *Evaluator) logAttempt(profileURL, tier string, attempt ParseAttempt) {
	if !e.verbose {
		return
	}
	switch attempt.Outcome {
	case ParseTransportError:
		log.Printf("[EVALUATE] %s call failed for %s: %v", tier, profileURL, attempt.Err)
	case ParseMalformed:
		log.Printf("[EVALUATE] %s response unparseable for %s: %v", tier, profileURL, attempt.Err)
	}
}

// finalize fills identity fields the LLM may have dropped and, when all six
// sub-scores parsed, replaces the LLM's arithmetic with the deterministic
// rubric-weighted sum so equal profiles get equal scores.
func (e *Evaluator) finalize(eval *types.CandidateEvaluation, profile *types.ExtractedProfile) *types.CandidateEvaluation {
	if eval.Name == "" {
		eval.Name = profile.Name
	}
	if eval.ProfileURL == "" {
		eval.ProfileURL = profile.ProfileURL
	}

	if eval.ScoreBreakdown.Complete() {
		eval.FitScore = types.NewScore(eval.ScoreBreakdown.Weighted())
	}

	return eval
}

// neutralEvaluation is the tier-three fallback: neutral sub-scores, minimal
// confidence, and a generic greeting that still uses the candidate's name
// when extraction recovered one.
func neutralEvaluation(profile *types.ExtractedProfile) *types.CandidateEvaluation {
	greetingName := "there"
	if profile.Name != "" && profile.Name != types.Unknown {
		greetingName = profile.Name
	}

	return &types.CandidateEvaluation{
		Name:            profile.Name,
		ProfileURL:      profile.ProfileURL,
		FitScore:        types.NewScore(5.0),
		ScoreBreakdown:  types.NeutralBreakdown(),
		Reasoning:       fallbackReasoning,
		ConfidenceScore: types.NewScore(0.1),
		OutreachMessage: fmt.Sprintf("Hi %s, I came across your profile and would love to connect!", greetingName),
	}
}

// buildAnalysisPrompt embeds the job description, the profile URL, and the
// serialized profile into the master analysis prompt.
func buildAnalysisPrompt(profile *types.ExtractedProfile, jobDescription string) string {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		// Marshaling a plain struct cannot realistically fail; keep the
		// pipeline moving with an empty object if it somehow does.
		profileJSON = []byte("{}")
	}

	name := profile.Name
	if name == "" {
		name = types.Unknown
	}

	template := prompts.MustGet("sourcing.json", "analyze-candidate")
	return prompts.Format(template, map[string]string{
		"JobDescription": jobDescription,
		"ProfileURL":     profile.ProfileURL,
		"ProfileJSON":    string(profileJSON),
		"Name":           name,
	})
}
