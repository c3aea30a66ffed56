// Package types provides type definitions for structured data used throughout the sourcing-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Unknown is the placeholder for profile fields the extractor could not resolve.
const Unknown = "N/A"

// Score is a numeric value parsed from LLM output. LLMs occasionally return
// numbers as strings ("8.5") or as non-numeric prose; both are tolerated at
// decode time. A Score that could not be coerced is marked invalid rather
// than failing the whole decode.
type Score struct {
	Value float64
	Valid bool
}

// NewScore returns a valid Score with the given value.
func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
// Anything else yields an invalid Score, not an error.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Score{Value: num, Valid: true}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if num, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*s = Score{Value: num, Valid: true}
			return nil
		}
	}

	*s = Score{}
	return nil
}

// MarshalJSON encodes a valid Score as a JSON number and an invalid one as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// ScoreBreakdown holds the six per-criterion sub-scores from candidate evaluation.
type ScoreBreakdown struct {
	Education  Score `json:"education"`
	Trajectory Score `json:"trajectory"`
	Company    Score `json:"company"`
	Skills     Score `json:"skills"`
	Location   Score `json:"location"`
	Tenure     Score `json:"tenure"`
}

// Criterion weights for the fit-score rubric.
const (
	WeightEducation  = 0.20
	WeightTrajectory = 0.20
	WeightCompany    = 0.15
	WeightSkills     = 0.25
	WeightLocation   = 0.10
	WeightTenure     = 0.10
)

// Complete reports whether all six sub-scores parsed as numbers.
func (b ScoreBreakdown) Complete() bool {
	return b.Education.Valid && b.Trajectory.Valid && b.Company.Valid &&
		b.Skills.Valid && b.Location.Valid && b.Tenure.Valid
}

// Weighted computes the rubric-weighted combination of the six sub-scores.
// Only meaningful when Complete() is true.
func (b ScoreBreakdown) Weighted() float64 {
	return WeightEducation*b.Education.Value +
		WeightTrajectory*b.Trajectory.Value +
		WeightCompany*b.Company.Value +
		WeightSkills*b.Skills.Value +
		WeightLocation*b.Location.Value +
		WeightTenure*b.Tenure.Value
}

// NeutralBreakdown returns the breakdown used when evaluation falls back:
// every criterion scored 5.0.
func NeutralBreakdown() ScoreBreakdown {
	return ScoreBreakdown{
		Education:  NewScore(5.0),
		Trajectory: NewScore(5.0),
		Company:    NewScore(5.0),
		Skills:     NewScore(5.0),
		Location:   NewScore(5.0),
		Tenure:     NewScore(5.0),
	}
}

// ExperienceEntry represents one position from a candidate's profile.
// Any field may be Unknown when the extractor could not resolve it.
type ExperienceEntry struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Duration string `json:"duration"`
}

// EducationEntry represents one education record from a candidate's profile.
type EducationEntry struct {
	School   string `json:"school"`
	Degree   string `json:"degree"`
	Duration string `json:"duration"`
}

// ExtractedProfile holds the structured fields scraped from a profile page.
// Extraction failures never surface as errors; they are carried in Error so
// the pipeline can degrade the candidate instead of aborting the run.
type ExtractedProfile struct {
	ProfileURL string            `json:"linkedin_url,omitempty"`
	Name       string            `json:"name"`
	Headline   string            `json:"headline"`
	Experience []ExperienceEntry `json:"experience"`
	Education  []EducationEntry  `json:"education"`
	Error      string            `json:"error,omitempty"`
}

// Failed reports whether extraction produced a failure marker.
func (p *ExtractedProfile) Failed() bool {
	return p.Error != ""
}

// CandidateEvaluation is the full analysis of one candidate against a job
// description. Immutable after evaluation except for OutreachSent, which the
// dispatcher sets when outreach is attempted.
type CandidateEvaluation struct {
	Name            string         `json:"name"`
	ProfileURL      string         `json:"linkedin_url"`
	FitScore        Score          `json:"fit_score"`
	ScoreBreakdown  ScoreBreakdown `json:"score_breakdown"`
	Reasoning       string         `json:"reasoning"`
	ConfidenceScore Score          `json:"confidence_score"`
	OutreachMessage string         `json:"outreach_message"`

	// OutreachSent is nil when outreach was not attempted, otherwise it
	// records whether the dispatch succeeded.
	OutreachSent *bool `json:"outreach_sent,omitempty"`
}

// FailureStage identifies which pipeline step degraded a candidate.
type FailureStage string

// Pipeline stages at which a single candidate can fail.
const (
	StageDiscovery  FailureStage = "discovery"
	StageExtraction FailureStage = "extraction"
	StageEvaluation FailureStage = "evaluation"
)

// FailedCandidate records a candidate that could not be evaluated.
// It is carried in the pipeline result but excluded from ranking.
type FailedCandidate struct {
	ProfileURL string       `json:"url"`
	Stage      FailureStage `json:"stage"`
	Reason     string       `json:"reason"`
}

// CandidateResult is either a successful evaluation or a structured failure.
// Exactly one of the two fields is set.
type CandidateResult struct {
	Evaluation *CandidateEvaluation `json:"evaluation,omitempty"`
	Failure    *FailedCandidate     `json:"failure,omitempty"`
}

// Failed reports whether this result carries a failure instead of an evaluation.
func (r CandidateResult) Failed() bool {
	return r.Failure != nil
}

// PipelineResult is the ordered outcome of one pipeline run: one entry per
// unique discovered profile, in discovery order, plus the query that was
// actually used.
type PipelineResult struct {
	Results         []CandidateResult `json:"results"`
	SearchQueryUsed string            `json:"search_query_used"`
}
