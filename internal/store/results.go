// Package store persists sourcing run output: formatted result envelopes on
// disk and a PostgreSQL cache of recently analyzed candidates.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/synapse-ai/sourcing-agent/internal/ranking"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// Result envelope statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// FormattedResult is the envelope returned to API callers and written to
// disk, one file per job.
type FormattedResult struct {
	JobID           string                       `json:"job_id"`
	JobDescription  string                       `json:"job_description"`
	SearchQueryUsed string                       `json:"search_query_used,omitempty"`
	CandidatesFound int                          `json:"candidates_found"`
	TopCandidates   []*types.CandidateEvaluation `json:"top_candidates"`
	Timestamp       time.Time                    `json:"timestamp"`
	Status          string                       `json:"status"`
	Error           string                       `json:"error,omitempty"`
	ProcessingTime  *float64                     `json:"processing_time,omitempty"`
}

// JobSummary is the listing view of a stored result.
type JobSummary struct {
	JobID           string    `json:"job_id"`
	Timestamp       time.Time `json:"timestamp"`
	CandidatesFound int       `json:"candidates_found"`
	Status          string    `json:"status"`
}

// FormatResult builds the completed envelope for a pipeline run: candidates
// with unusable scores are dropped, the rest sorted best-first and truncated
// to maxCandidates. CandidatesFound counts every scoreable candidate, not
// just the retained top slice.
func FormatResult(result *types.PipelineResult, jobDescription string, processingTime time.Duration, maxCandidates int) *FormattedResult {
	valid := ranking.Valid(result.Results)
	seconds := processingTime.Seconds()

	return &FormattedResult{
		JobID:           uuid.New().String(),
		JobDescription:  jobDescription,
		SearchQueryUsed: result.SearchQueryUsed,
		CandidatesFound: len(valid),
		TopCandidates:   ranking.Rank(result.Results, maxCandidates),
		Timestamp:       time.Now().UTC(),
		Status:          StatusCompleted,
		ProcessingTime:  &seconds,
	}
}

// FormatRunning builds the placeholder envelope written when a background
// job is accepted, so its ID resolves before the run finishes. The
// completed or error envelope overwrites it under the same ID.
func FormatRunning(jobDescription, searchQuery string) *FormattedResult {
	return &FormattedResult{
		JobID:           uuid.New().String(),
		JobDescription:  jobDescription,
		SearchQueryUsed: searchQuery,
		TopCandidates:   []*types.CandidateEvaluation{},
		Timestamp:       time.Now().UTC(),
		Status:          StatusRunning,
	}
}

// FormatError builds the envelope for a run that failed before producing
// candidates.
func FormatError(jobDescription, searchQuery, errMsg string, processingTime time.Duration) *FormattedResult {
	seconds := processingTime.Seconds()

	return &FormattedResult{
		JobID:           uuid.New().String(),
		JobDescription:  jobDescription,
		SearchQueryUsed: searchQuery,
		TopCandidates:   []*types.CandidateEvaluation{},
		Timestamp:       time.Now().UTC(),
		Status:          StatusError,
		Error:           errMsg,
		ProcessingTime:  &seconds,
	}
}

// ResultStore writes one JSON file per job under a results directory.
type ResultStore struct {
	dir string
}

// NewResultStore ensures the results directory exists.
func NewResultStore(dir string) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &ResultStore{dir: dir}, nil
}

// Save writes the envelope to <dir>/<job_id>.json.
func (s *ResultStore) Save(result *FormattedResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	path := filepath.Join(s.dir, result.JobID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return nil
}

// Load reads one stored envelope. A missing job returns (nil, nil).
func (s *ResultStore) Load(jobID string) (*FormattedResult, error) {
	// Job IDs come from request paths; only UUID-shaped names are stored.
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, jobID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results for %s: %w", jobID, err)
	}

	var result FormattedResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse results for %s: %w", jobID, err)
	}
	return &result, nil
}

// List returns a summary of every stored job, ignoring unreadable files.
func (s *ResultStore) List() ([]JobSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	summaries := make([]JobSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		result, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil || result == nil {
			continue
		}
		summaries = append(summaries, JobSummary{
			JobID:           result.JobID,
			Timestamp:       result.Timestamp,
			CandidatesFound: result.CandidatesFound,
			Status:          result.Status,
		})
	}
	return summaries, nil
}
