// Package pipeline provides the high-level orchestration for one candidate
// sourcing run: resolve a search query, discover profiles, then extract,
// evaluate, and optionally reach out to each candidate in turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/synapse-ai/sourcing-agent/internal/discovery"
	"github.com/synapse-ai/sourcing-agent/internal/evaluation"
	"github.com/synapse-ai/sourcing-agent/internal/llm"
	"github.com/synapse-ai/sourcing-agent/internal/query"
	"github.com/synapse-ai/sourcing-agent/internal/scraping"
	"github.com/synapse-ai/sourcing-agent/internal/store"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// ErrMissingSessionCookie is the one fatal construction error: without an
// authenticated session the scraper can only hit auth walls, so the run is
// refused before discovery is attempted.
var ErrMissingSessionCookie = errors.New("LINKEDIN_SESSION_COOKIE is not set")

// QueryGenerator resolves a job description into a search query.
type QueryGenerator interface {
	Generate(ctx context.Context, jobDescription string) string
}

// Discoverer finds candidate profile URLs for a query.
type Discoverer interface {
	Discover(ctx context.Context, searchQuery string, maxResults int) []string
}

// Extractor turns a profile URL into structured profile data.
type Extractor interface {
	Extract(ctx context.Context, profileURL string) *types.ExtractedProfile
}

// Evaluator scores an extracted profile against a job description.
type Evaluator interface {
	Evaluate(ctx context.Context, profile *types.ExtractedProfile, jobDescription string) *types.CandidateEvaluation
}

// Dispatcher delivers an outreach message to a profile.
type Dispatcher interface {
	Dispatch(ctx context.Context, profileURL, message string) bool
}

// Cache short-circuits extraction and evaluation for recently analyzed
// profiles. Errors from the cache are advisory; the pipeline falls back to
// live scraping on every miss or lookup failure.
type Cache interface {
	Lookup(ctx context.Context, profileURL string) (*store.CachedCandidate, error)
	Store(ctx context.Context, profileURL string, profile *types.ExtractedProfile, evaluation *types.CandidateEvaluation) error
}

// Config holds the credentials and knobs for one pipeline instance.
type Config struct {
	GeminiAPIKey   string
	GoogleAPIKey   string
	SearchEngineID string
	SessionCookie  string
	// DatabaseURL enables the candidate cache when set.
	DatabaseURL string

	// DebugDir receives per-profile screenshots when set.
	DebugDir string
	// PacingDelay overrides the delay between profile cycles; zero means
	// the scraping default.
	PacingDelay       time.Duration
	NavigationTimeout time.Duration
	Verbose           bool
}

// Pipeline executes one sourcing run. It exclusively owns a browser context
// and an LLM client handle for its lifetime; Close releases both and must
// run on every exit path.
type Pipeline struct {
	queries    QueryGenerator
	discoverer Discoverer
	extractor  Extractor
	evaluator  Evaluator
	dispatcher Dispatcher
	cache      Cache

	pacing  time.Duration
	verbose bool
	cleanup []func()
}

// New constructs a pipeline instance, creating its LLM client and browsing
// session. A missing session cookie or LLM credential is fatal here, before
// any discovery work starts.
func New(ctx context.Context, cfg Config) (*Pipeline, error) {
	if cfg.SessionCookie == "" {
		return nil, ErrMissingSessionCookie
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	session, err := scraping.NewSession(ctx, scraping.SessionConfig{
		SessionCookie:     cfg.SessionCookie,
		NavigationTimeout: cfg.NavigationTimeout,
		Verbose:           cfg.Verbose,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	pacing := cfg.PacingDelay
	if pacing == 0 {
		pacing = scraping.PacingDelay
	}

	p := &Pipeline{
		queries:    query.NewGenerator(client, cfg.Verbose),
		discoverer: discovery.NewDiscoverer(ctx, cfg.GoogleAPIKey, cfg.SearchEngineID, cfg.Verbose),
		extractor:  scraping.NewExtractor(session, cfg.DebugDir, cfg.Verbose),
		evaluator:  evaluation.NewEvaluator(client, cfg.Verbose),
		dispatcher: scraping.NewDispatcher(session, cfg.Verbose),
		pacing:     pacing,
		verbose:    cfg.Verbose,
		cleanup:    []func(){session.Close, func() { _ = client.Close() }},
	}

	// The candidate cache is best-effort: no database URL, or a database we
	// cannot reach, just means every profile is scraped fresh.
	cache, err := store.OpenCandidateCache(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("[PIPELINE] candidate cache unavailable, continuing without: %v", err)
	} else if cache != nil {
		p.cache = cache
		p.cleanup = append(p.cleanup, cache.Close)
	}

	return p, nil
}

// newWithCollaborators wires explicit collaborators, for tests.
func newWithCollaborators(q QueryGenerator, d Discoverer, x Extractor, e Evaluator, o Dispatcher, pacing time.Duration) *Pipeline {
	return &Pipeline{
		queries:    q,
		discoverer: d,
		extractor:  x,
		evaluator:  e,
		dispatcher: o,
		pacing:     pacing,
	}
}

// Close releases the browser context and LLM client. Safe to call more
// than once.
func (p *Pipeline) Close() {
	for _, fn := range p.cleanup {
		fn()
	}
	p.cleanup = nil
}

// Run executes the full pipeline for one job request: resolve query,
// discover profiles, then cycle each candidate through extraction,
// evaluation, and optional outreach.
//
// Per-candidate failures degrade that candidate to a FailedCandidate entry;
// the run itself only errors before discovery. Zero discovered profiles is
// success with an empty result, not an error.
func (p *Pipeline) Run(ctx context.Context, req types.JobRequest) (*types.PipelineResult, error) {
	req.Normalize()

	searchQuery := req.SearchQuery
	if searchQuery == "" {
		if p.verbose {
			log.Printf("[PIPELINE] no search query provided, generating one from job description")
		}
		searchQuery = p.queries.Generate(ctx, req.JobDescription)
	}

	profileURLs := p.discoverer.Discover(ctx, searchQuery, req.MaxCandidates)
	if p.verbose {
		log.Printf("[PIPELINE] discovered %d candidate profiles", len(profileURLs))
	}

	result := &types.PipelineResult{
		Results:         make([]types.CandidateResult, 0, len(profileURLs)),
		SearchQueryUsed: searchQuery,
	}

	for i, profileURL := range profileURLs {
		if i > 0 {
			pause(ctx, p.pacing)
		}
		result.Results = append(result.Results, p.processProfile(ctx, profileURL, req.JobDescription, req.SendOutreach))
	}

	return result, nil
}

// ScoreCandidates runs extraction and evaluation for already-known profile
// URLs, skipping discovery. No outreach is sent.
func (p *Pipeline) ScoreCandidates(ctx context.Context, req types.ScoreCandidatesRequest) (*types.PipelineResult, error) {
	result := &types.PipelineResult{
		Results: make([]types.CandidateResult, 0, len(req.Candidates)),
	}

	for i, candidate := range req.Candidates {
		if i > 0 {
			pause(ctx, p.pacing)
		}
		result.Results = append(result.Results, p.processProfile(ctx, candidate.ProfileURL, req.JobDescription, false))
	}

	return result, nil
}

// GenerateOutreach produces personalized messages for candidates whose
// profile data is already in hand; only the evaluator runs, no browser work.
func (p *Pipeline) GenerateOutreach(ctx context.Context, req types.OutreachRequest) ([]types.OutreachMessage, error) {
	return generateOutreach(ctx, p.evaluator, req)
}

func generateOutreach(ctx context.Context, evaluator Evaluator, req types.OutreachRequest) ([]types.OutreachMessage, error) {
	messages := make([]types.OutreachMessage, 0, len(req.Profiles))

	for i := range req.Profiles {
		profile := &req.Profiles[i]
		eval := evaluator.Evaluate(ctx, profile, req.JobDescription)
		messages = append(messages, types.OutreachMessage{
			Candidate:  eval.Name,
			ProfileURL: eval.ProfileURL,
			Message:    eval.OutreachMessage,
			FitScore:   eval.FitScore,
		})
	}

	return messages, nil
}

// processProfile runs one candidate's extract → evaluate → dispatch cycle.
// Every failure mode ends in a structured result; nothing here aborts the run.
func (p *Pipeline) processProfile(ctx context.Context, profileURL, jobDescription string, sendOutreach bool) types.CandidateResult {
	if eval := p.cachedEvaluation(ctx, profileURL); eval != nil {
		if sendOutreach && eval.OutreachMessage != "" {
			sent := p.safeDispatch(ctx, profileURL, eval.OutreachMessage)
			eval.OutreachSent = &sent
		}
		return types.CandidateResult{Evaluation: eval}
	}

	profile := p.extractor.Extract(ctx, profileURL)
	if profile == nil || profile.Failed() {
		reason := "no data found"
		if profile != nil && profile.Error != "" {
			reason = profile.Error
		}
		if p.verbose {
			log.Printf("[PIPELINE] skipping analysis for %s: %s", profileURL, reason)
		}
		return types.CandidateResult{Failure: &types.FailedCandidate{
			ProfileURL: profileURL,
			Stage:      types.StageExtraction,
			Reason:     reason,
		}}
	}
	profile.ProfileURL = profileURL

	eval := p.evaluator.Evaluate(ctx, profile, jobDescription)
	if eval == nil {
		// The evaluator contract says this cannot happen; degrade anyway
		// rather than panic on a misbehaving implementation.
		return types.CandidateResult{Failure: &types.FailedCandidate{
			ProfileURL: profileURL,
			Stage:      types.StageEvaluation,
			Reason:     "evaluator returned no result",
		}}
	}

	if p.cache != nil {
		if err := p.cache.Store(ctx, profileURL, profile, eval); err != nil {
			log.Printf("[PIPELINE] failed to cache candidate %s: %v", profileURL, err)
		}
	}

	if sendOutreach && eval.OutreachMessage != "" {
		if p.verbose {
			log.Printf("[PIPELINE] sending connection request to %s", profileURL)
		}
		sent := p.safeDispatch(ctx, profileURL, eval.OutreachMessage)
		eval.OutreachSent = &sent
	}

	return types.CandidateResult{Evaluation: eval}
}

// cachedEvaluation returns a copy of the cached evaluation for a profile, or
// nil when the cache is disabled, stale, or erroring.
func (p *Pipeline) cachedEvaluation(ctx context.Context, profileURL string) *types.CandidateEvaluation {
	if p.cache == nil {
		return nil
	}
	cached, err := p.cache.Lookup(ctx, profileURL)
	if err != nil {
		log.Printf("[PIPELINE] candidate cache lookup failed for %s: %v", profileURL, err)
		return nil
	}
	if cached == nil || cached.Evaluation == nil {
		return nil
	}
	if p.verbose {
		log.Printf("[PIPELINE] using cached analysis for %s", profileURL)
	}
	eval := *cached.Evaluation
	eval.OutreachSent = nil
	return &eval
}

// safeDispatch contains outreach delivery: even a panicking dispatcher only
// costs the candidate their dispatch flag, never their evaluation.
func (p *Pipeline) safeDispatch(ctx context.Context, profileURL, message string) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] outreach dispatch panicked for %s: %v", profileURL, r)
			sent = false
		}
	}()
	return p.dispatcher.Dispatch(ctx, profileURL, message)
}

// Searcher runs query generation and profile discovery without a browser
// session; candidate search endpoints use it to avoid paying for Chrome
// startup when nothing will be scraped.
type Searcher struct {
	queries    QueryGenerator
	discoverer Discoverer
	cleanup    func()
}

// NewSearcher wires the discovery half of the pipeline. Only the LLM
// credential is required; missing search credentials degrade to empty
// discovery results.
func NewSearcher(ctx context.Context, cfg Config) (*Searcher, error) {
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &Searcher{
		queries:    query.NewGenerator(client, cfg.Verbose),
		discoverer: discovery.NewDiscoverer(ctx, cfg.GoogleAPIKey, cfg.SearchEngineID, cfg.Verbose),
		cleanup:    func() { _ = client.Close() },
	}, nil
}

// Search resolves the query and returns discovered profile URLs along with
// the query that was used.
func (s *Searcher) Search(ctx context.Context, jobDescription, searchQuery string, maxResults int) (string, []string) {
	if searchQuery == "" {
		searchQuery = s.queries.Generate(ctx, jobDescription)
	}
	return searchQuery, s.discoverer.Discover(ctx, searchQuery, maxResults)
}

// Close releases the LLM client.
func (s *Searcher) Close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// MessageWriter runs evaluation alone, for outreach generation over profile
// data the caller already has. No browser session, no discovery, and no
// session cookie required.
type MessageWriter struct {
	evaluator Evaluator
	cleanup   func()
}

// NewMessageWriter wires the evaluation half of the pipeline. Only the LLM
// credential is needed.
func NewMessageWriter(ctx context.Context, cfg Config) (*MessageWriter, error) {
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &MessageWriter{
		evaluator: evaluation.NewEvaluator(client, cfg.Verbose),
		cleanup:   func() { _ = client.Close() },
	}, nil
}

// GenerateOutreach produces personalized messages for the given profiles.
func (m *MessageWriter) GenerateOutreach(ctx context.Context, req types.OutreachRequest) ([]types.OutreachMessage, error) {
	return generateOutreach(ctx, m.evaluator, req)
}

// Close releases the LLM client.
func (m *MessageWriter) Close() {
	if m.cleanup != nil {
		m.cleanup()
		m.cleanup = nil
	}
}

// pause sleeps for the pacing delay, returning early on cancellation.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
