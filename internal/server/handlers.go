package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/synapse-ai/sourcing-agent/internal/pipeline"
	"github.com/synapse-ai/sourcing-agent/internal/store"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// JobAcceptedResponse is returned by the async run endpoint.
type JobAcceptedResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DiscoveredCandidate is one search hit before any scraping has happened.
type DiscoveredCandidate struct {
	Name       string `json:"name"`
	ProfileURL string `json:"linkedin_url"`
	Headline   string `json:"headline"`
}

// SearchResponse is the body for /candidates/search.
type SearchResponse struct {
	SearchQueryUsed string                `json:"search_query_used"`
	Candidates      []DiscoveredCandidate `json:"candidates"`
}

// ScoreResponse is the body for /candidates/score.
type ScoreResponse struct {
	ScoredCandidates []types.CandidateResult `json:"scored_candidates"`
}

// OutreachResponse is the body for /candidates/outreach.
type OutreachResponse struct {
	Messages []types.OutreachMessage `json:"messages"`
}

// handleRunJob starts a sourcing run in the background and returns the job ID
// the results will be stored under.
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var req types.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Normalize()

	jobID := uuid.New().String()
	log.Printf("Starting sourcing job %s in the background", jobID)

	// Persist a running envelope first so the job ID resolves while the run
	// is still in flight; the final envelope overwrites it.
	s.saveResult(withJobID(store.FormatRunning(req.JobDescription, req.SearchQuery), jobID))

	go func() {
		ctx := context.Background()
		if _, err := s.executeJob(ctx, jobID, req); err != nil {
			log.Printf("Sourcing job %s failed: %v", jobID, err)
			s.saveResult(withJobID(store.FormatError(req.JobDescription, req.SearchQuery, err.Error(), 0), jobID))
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, JobAcceptedResponse{
		JobID:   jobID,
		Status:  store.StatusRunning,
		Message: "Sourcing job started in the background. Results will be processed and stored.",
	})
}

// handleRunJobSync runs the full pipeline before responding. Slow, but
// convenient for demos.
func (s *Server) handleRunJobSync(w http.ResponseWriter, r *http.Request) {
	var req types.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Normalize()

	formatted, err := s.executeJob(r.Context(), uuid.New().String(), req)
	if err != nil {
		s.errorResponse(w, runErrorStatus(err), "Error processing sourcing job: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, formatted)
}

// executeJob runs one pipeline execution under the concurrency limit and
// persists the formatted envelope under jobID.
func (s *Server) executeJob(ctx context.Context, jobID string, req types.JobRequest) (*store.FormattedResult, error) {
	if err := s.runSlots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.runSlots.Release(1)

	start := time.Now()
	runner, err := s.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	result, err := runner.Run(ctx, req)
	if err != nil {
		formatted := withJobID(store.FormatError(req.JobDescription, req.SearchQuery, err.Error(), time.Since(start)), jobID)
		s.saveResult(formatted)
		return formatted, nil
	}

	formatted := withJobID(store.FormatResult(result, req.JobDescription, time.Since(start), req.MaxCandidates), jobID)
	s.saveResult(formatted)
	return formatted, nil
}

// handleGetResults returns the stored envelope for one job.
func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	result, err := s.results.Load(jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		s.errorResponse(w, http.StatusNotFound, "Results not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleListResults returns a summary of every stored job.
func (s *Server) handleListResults(w http.ResponseWriter, _ *http.Request) {
	summaries, err := s.results.List()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Error listing results: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string][]store.JobSummary{"jobs": summaries})
}

// handleSearchCandidates runs discovery only. The placeholder name and
// headline signal that these hits have not been scraped yet.
func (s *Server) handleSearchCandidates(w http.ResponseWriter, r *http.Request) {
	var req types.CandidateSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Normalize()

	searcher, err := s.newSearcher(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Sourcing agent is not available: "+err.Error())
		return
	}
	defer searcher.Close()

	queryUsed, urls := searcher.Search(r.Context(), req.JobDescription, req.SearchQuery, req.NumResults)

	candidates := make([]DiscoveredCandidate, 0, len(urls))
	for _, url := range urls {
		candidates = append(candidates, DiscoveredCandidate{
			Name:       "Profile Found",
			ProfileURL: url,
			Headline:   "To be scraped",
		})
	}
	s.jsonResponse(w, http.StatusOK, SearchResponse{SearchQueryUsed: queryUsed, Candidates: candidates})
}

// handleScoreCandidates scores already-known profile URLs against a job
// description.
func (s *Server) handleScoreCandidates(w http.ResponseWriter, r *http.Request) {
	var req types.ScoreCandidatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.runSlots.Acquire(r.Context(), 1); err != nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Server is busy")
		return
	}
	defer s.runSlots.Release(1)

	runner, err := s.newRunner(r.Context())
	if err != nil {
		s.errorResponse(w, runErrorStatus(err), "Sourcing agent is not available: "+err.Error())
		return
	}
	defer runner.Close()

	result, err := runner.ScoreCandidates(r.Context(), req)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Error scoring candidates: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, ScoreResponse{ScoredCandidates: result.Results})
}

// handleGenerateOutreach produces personalized messages for profiles the
// caller already extracted.
func (s *Server) handleGenerateOutreach(w http.ResponseWriter, r *http.Request) {
	var req types.OutreachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// Message generation is pure LLM work: no browser session, so it needs
	// neither a session cookie nor a run slot.
	writer, err := s.newWriter(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Sourcing agent is not available: "+err.Error())
		return
	}
	defer writer.Close()

	messages, err := writer.GenerateOutreach(r.Context(), req)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Error generating outreach: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, OutreachResponse{Messages: messages})
}

// saveResult persists an envelope, logging rather than failing the request
// when the disk write goes wrong.
func (s *Server) saveResult(result *store.FormattedResult) {
	if err := s.results.Save(result); err != nil {
		log.Printf("Error saving results for job %s: %v", result.JobID, err)
	}
}

// withJobID pins the envelope to the ID the caller was already given.
func withJobID(result *store.FormattedResult, jobID string) *store.FormattedResult {
	result.JobID = jobID
	return result
}

// runErrorStatus maps pipeline construction failures to HTTP statuses. A
// missing session cookie means the agent cannot work at all.
func runErrorStatus(err error) int {
	if errors.Is(err, pipeline.ErrMissingSessionCookie) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
