package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-ai/sourcing-agent/internal/ranking"
	"github.com/synapse-ai/sourcing-agent/internal/store"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

type stubQueryGenerator struct {
	query  string
	called bool
}

func (s *stubQueryGenerator) Generate(_ context.Context, _ string) string {
	s.called = true
	return s.query
}

type stubDiscoverer struct {
	urls []string
	gotQ string
	gotN int
}

func (s *stubDiscoverer) Discover(_ context.Context, searchQuery string, maxResults int) []string {
	s.gotQ = searchQuery
	s.gotN = maxResults
	return s.urls
}

type stubExtractor struct {
	// failFor maps URLs to failure reasons.
	failFor map[string]string
	calls   []string
}

func (s *stubExtractor) Extract(_ context.Context, profileURL string) *types.ExtractedProfile {
	s.calls = append(s.calls, profileURL)
	if reason, ok := s.failFor[profileURL]; ok {
		return &types.ExtractedProfile{ProfileURL: profileURL, Name: types.Unknown, Error: reason}
	}
	slug := profileURL[strings.LastIndex(profileURL, "/")+1:]
	return &types.ExtractedProfile{
		ProfileURL: profileURL,
		Name:       slug,
		Headline:   "Engineer",
	}
}

type stubEvaluator struct {
	scores map[string]float64
	calls  int
}

func (s *stubEvaluator) Evaluate(_ context.Context, profile *types.ExtractedProfile, _ string) *types.CandidateEvaluation {
	s.calls++
	score := 5.0
	if v, ok := s.scores[profile.Name]; ok {
		score = v
	}
	return &types.CandidateEvaluation{
		Name:            profile.Name,
		ProfileURL:      profile.ProfileURL,
		FitScore:        types.NewScore(score),
		ScoreBreakdown:  types.NeutralBreakdown(),
		Reasoning:       "stub reasoning",
		ConfidenceScore: types.NewScore(0.8),
		OutreachMessage: fmt.Sprintf("Hi %s!", profile.Name),
	}
}

type stubDispatcher struct {
	succeed bool
	panics  bool
	calls   []string
}

func (s *stubDispatcher) Dispatch(_ context.Context, profileURL, _ string) bool {
	s.calls = append(s.calls, profileURL)
	if s.panics {
		panic("browser crashed")
	}
	return s.succeed
}

func url(slug string) string {
	return "https://www.linkedin.com/in/" + slug
}

func newTestPipeline(q QueryGenerator, d Discoverer, x Extractor, e Evaluator, o Dispatcher) *Pipeline {
	return newWithCollaborators(q, d, x, e, o, 0)
}

func TestRun_FullPipeline(t *testing.T) {
	queries := &stubQueryGenerator{query: "ml engineer bay area"}
	disc := &stubDiscoverer{urls: []string{url("a"), url("b")}}
	extractor := &stubExtractor{}
	evaluator := &stubEvaluator{scores: map[string]float64{"a": 8.0, "b": 6.5}}
	dispatcher := &stubDispatcher{succeed: true}

	p := newTestPipeline(queries, disc, extractor, evaluator, dispatcher)
	result, err := p.Run(context.Background(), types.JobRequest{
		JobDescription: "Senior ML engineer role",
		MaxCandidates:  10,
	})

	require.NoError(t, err)
	assert.True(t, queries.called)
	assert.Equal(t, "ml engineer bay area", result.SearchQueryUsed)
	assert.Equal(t, 10, disc.gotN)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "a", result.Results[0].Evaluation.Name)
	assert.Equal(t, "b", result.Results[1].Evaluation.Name)
	// Outreach off: dispatcher untouched, outcome unset
	assert.Empty(t, dispatcher.calls)
	assert.Nil(t, result.Results[0].Evaluation.OutreachSent)
}

func TestRun_ExplicitQuerySkipsGeneration(t *testing.T) {
	queries := &stubQueryGenerator{query: "generated"}
	disc := &stubDiscoverer{}

	p := newTestPipeline(queries, disc, &stubExtractor{}, &stubEvaluator{}, &stubDispatcher{})
	result, err := p.Run(context.Background(), types.JobRequest{
		JobDescription: "Senior ML engineer role",
		SearchQuery:    "handwritten query",
	})

	require.NoError(t, err)
	assert.False(t, queries.called)
	assert.Equal(t, "handwritten query", result.SearchQueryUsed)
	assert.Equal(t, "handwritten query", disc.gotQ)
}

func TestRun_ZeroDiscoveredIsSuccessNotError(t *testing.T) {
	p := newTestPipeline(
		&stubQueryGenerator{query: "q"},
		&stubDiscoverer{urls: nil},
		&stubExtractor{}, &stubEvaluator{}, &stubDispatcher{},
	)

	result, err := p.Run(context.Background(), types.JobRequest{JobDescription: "role"})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Results)
	assert.Equal(t, "q", result.SearchQueryUsed)
}

// One entry per discovered profile, failures included: 3 discovered, 1
// extraction failure still yields 3 results.
func TestRun_PerCandidateFailureIsolation(t *testing.T) {
	disc := &stubDiscoverer{urls: []string{url("a"), url("broken"), url("c")}}
	extractor := &stubExtractor{failFor: map[string]string{
		url("broken"): "authentication required - hit auth wall",
	}}
	evaluator := &stubEvaluator{scores: map[string]float64{"a": 7.0, "c": 9.0}}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, disc, extractor, evaluator, &stubDispatcher{})
	result, err := p.Run(context.Background(), types.JobRequest{JobDescription: "role"})

	require.NoError(t, err)
	require.Len(t, result.Results, 3)
	assert.False(t, result.Results[0].Failed())
	assert.True(t, result.Results[1].Failed())
	assert.Equal(t, types.StageExtraction, result.Results[1].Failure.Stage)
	assert.Contains(t, result.Results[1].Failure.Reason, "auth wall")
	assert.False(t, result.Results[2].Failed())
	assert.Equal(t, 2, evaluator.calls)

	// Ranking over the same result: failures excluded, score order.
	ranked := ranking.Rank(result.Results, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].Name)
	assert.Equal(t, "a", ranked[1].Name)
}

func TestRun_OutreachSuccessRecorded(t *testing.T) {
	disc := &stubDiscoverer{urls: []string{url("a")}}
	dispatcher := &stubDispatcher{succeed: true}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, disc, &stubExtractor{}, &stubEvaluator{}, dispatcher)
	result, err := p.Run(context.Background(), types.JobRequest{
		JobDescription: "role",
		SendOutreach:   true,
	})

	require.NoError(t, err)
	require.Len(t, dispatcher.calls, 1)
	eval := result.Results[0].Evaluation
	require.NotNil(t, eval.OutreachSent)
	assert.True(t, *eval.OutreachSent)
}

func TestRun_DispatcherPanicDoesNotLoseEvaluation(t *testing.T) {
	disc := &stubDiscoverer{urls: []string{url("a")}}
	dispatcher := &stubDispatcher{panics: true}
	evaluator := &stubEvaluator{scores: map[string]float64{"a": 8.5}}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, disc, &stubExtractor{}, evaluator, dispatcher)
	result, err := p.Run(context.Background(), types.JobRequest{
		JobDescription: "role",
		SendOutreach:   true,
	})

	require.NoError(t, err)
	eval := result.Results[0].Evaluation
	require.NotNil(t, eval)
	assert.InDelta(t, 8.5, eval.FitScore.Value, 0.001)
	assert.Equal(t, "stub reasoning", eval.Reasoning)
	assert.NotEmpty(t, eval.OutreachMessage)
	require.NotNil(t, eval.OutreachSent)
	assert.False(t, *eval.OutreachSent)
}

func TestRun_DispatchFailureDoesNotBlockNextCandidate(t *testing.T) {
	disc := &stubDiscoverer{urls: []string{url("a"), url("b")}}
	dispatcher := &stubDispatcher{succeed: false}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, disc, &stubExtractor{}, &stubEvaluator{}, dispatcher)
	result, err := p.Run(context.Background(), types.JobRequest{
		JobDescription: "role",
		SendOutreach:   true,
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	require.NotNil(t, result.Results[1].Evaluation)
	assert.Len(t, dispatcher.calls, 2)
}

func TestScoreCandidates_SkipsDiscoveryAndOutreach(t *testing.T) {
	disc := &stubDiscoverer{urls: []string{url("never")}}
	extractor := &stubExtractor{}
	dispatcher := &stubDispatcher{succeed: true}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, disc, extractor, &stubEvaluator{}, dispatcher)
	result, err := p.ScoreCandidates(context.Background(), types.ScoreCandidatesRequest{
		JobDescription: "role",
		Candidates: []types.CandidateRef{
			{ProfileURL: url("x")},
			{ProfileURL: url("y")},
		},
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, []string{url("x"), url("y")}, extractor.calls)
	assert.Empty(t, disc.gotQ)
	assert.Empty(t, dispatcher.calls)
}

func TestGenerateOutreach_UsesProvidedProfiles(t *testing.T) {
	extractor := &stubExtractor{}
	evaluator := &stubEvaluator{scores: map[string]float64{"Jane Doe": 8.0}}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, &stubDiscoverer{}, extractor, evaluator, &stubDispatcher{})
	messages, err := p.GenerateOutreach(context.Background(), types.OutreachRequest{
		JobDescription: "role",
		Profiles: []types.ExtractedProfile{
			{ProfileURL: url("janedoe"), Name: "Jane Doe"},
		},
	})

	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Empty(t, extractor.calls)
	assert.Equal(t, "Jane Doe", messages[0].Candidate)
	assert.Equal(t, "Hi Jane Doe!", messages[0].Message)
	assert.InDelta(t, 8.0, messages[0].FitScore.Value, 0.001)
}

type stubCache struct {
	hits    map[string]*types.CandidateEvaluation
	lookups []string
	stored  []string
	err     error
}

func (s *stubCache) Lookup(_ context.Context, profileURL string) (*store.CachedCandidate, error) {
	s.lookups = append(s.lookups, profileURL)
	if s.err != nil {
		return nil, s.err
	}
	if eval, ok := s.hits[profileURL]; ok {
		return &store.CachedCandidate{Evaluation: eval}, nil
	}
	return nil, nil
}

func (s *stubCache) Store(_ context.Context, profileURL string, _ *types.ExtractedProfile, _ *types.CandidateEvaluation) error {
	s.stored = append(s.stored, profileURL)
	return nil
}

func TestRun_CacheHitSkipsScraping(t *testing.T) {
	disc := &stubDiscoverer{urls: []string{url("cached"), url("fresh")}}
	extractor := &stubExtractor{}
	cache := &stubCache{hits: map[string]*types.CandidateEvaluation{
		url("cached"): {Name: "Cached One", ProfileURL: url("cached"), FitScore: types.NewScore(9.1)},
	}}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, disc, extractor, &stubEvaluator{}, &stubDispatcher{})
	p.cache = cache
	result, err := p.Run(context.Background(), types.JobRequest{JobDescription: "role"})

	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "Cached One", result.Results[0].Evaluation.Name)
	// Only the miss goes through the browser, and only the miss is stored.
	assert.Equal(t, []string{url("fresh")}, extractor.calls)
	assert.Equal(t, []string{url("fresh")}, cache.stored)
}

func TestRun_CacheErrorFallsBackToScraping(t *testing.T) {
	disc := &stubDiscoverer{urls: []string{url("a")}}
	extractor := &stubExtractor{}
	cache := &stubCache{err: fmt.Errorf("connection refused")}

	p := newTestPipeline(&stubQueryGenerator{query: "q"}, disc, extractor, &stubEvaluator{}, &stubDispatcher{})
	p.cache = cache
	result, err := p.Run(context.Background(), types.JobRequest{JobDescription: "role"})

	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Failed())
	assert.Equal(t, []string{url("a")}, extractor.calls)
}

func TestNew_MissingSessionCookieIsFatal(t *testing.T) {
	_, err := New(context.Background(), Config{GeminiAPIKey: "key"})
	assert.ErrorIs(t, err, ErrMissingSessionCookie)
}
