package types

import (
	"github.com/go-playground/validator/v10"
)

// DefaultMaxCandidates is the number of candidates a run targets when the
// request does not specify one.
const DefaultMaxCandidates = 10

// JobRequest is the immutable input to one pipeline run.
type JobRequest struct {
	JobDescription string `json:"job_description" validate:"required,min=1"`
	SearchQuery    string `json:"search_query,omitempty"`
	SendOutreach   bool   `json:"send_outreach,omitempty"`
	MaxCandidates  int    `json:"max_candidates,omitempty" validate:"omitempty,min=1,max=50"`
}

// Validate validates the JobRequest using the validator.
func (r *JobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Normalize fills in defaults for optional fields.
func (r *JobRequest) Normalize() {
	if r.MaxCandidates == 0 {
		r.MaxCandidates = DefaultMaxCandidates
	}
}

// CandidateSearchRequest asks for profile discovery only: no scraping, no
// scoring.
type CandidateSearchRequest struct {
	JobDescription string `json:"job_description" validate:"required,min=1"`
	SearchQuery    string `json:"search_query,omitempty"`
	NumResults     int    `json:"num_results,omitempty" validate:"omitempty,min=1,max=50"`
}

// Validate validates the CandidateSearchRequest using the validator.
func (r *CandidateSearchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Normalize fills in defaults for optional fields.
func (r *CandidateSearchRequest) Normalize() {
	if r.NumResults == 0 {
		r.NumResults = DefaultMaxCandidates
	}
}

// CandidateRef identifies an already-discovered candidate for the narrower
// scoring and outreach entry points.
type CandidateRef struct {
	Name       string `json:"name,omitempty"`
	ProfileURL string `json:"linkedin_url" validate:"required,url"`
}

// ScoreCandidatesRequest asks for fit scores for known profile URLs,
// skipping discovery.
type ScoreCandidatesRequest struct {
	JobDescription string         `json:"job_description" validate:"required,min=1"`
	Candidates     []CandidateRef `json:"candidates" validate:"required,min=1,max=50,dive"`
}

// Validate validates the ScoreCandidatesRequest using the validator.
func (r *ScoreCandidatesRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// OutreachRequest asks for personalized outreach messages for candidates
// whose profile data is already in hand, skipping discovery and extraction.
type OutreachRequest struct {
	JobDescription string             `json:"job_description" validate:"required,min=1"`
	Profiles       []ExtractedProfile `json:"profiles" validate:"required,min=1,max=50,dive"`
}

// OutreachMessage pairs a candidate with their generated outreach text.
type OutreachMessage struct {
	Candidate  string `json:"candidate"`
	ProfileURL string `json:"linkedin_url"`
	Message    string `json:"message"`
	FitScore   Score  `json:"fit_score"`
}

// Validate validates the OutreachRequest using the validator.
func (r *OutreachRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
