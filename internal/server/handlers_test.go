package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-ai/sourcing-agent/internal/pipeline"
	"github.com/synapse-ai/sourcing-agent/internal/store"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

type fakeRunner struct {
	result *types.PipelineResult
	err    error
	closed bool
}

func (f *fakeRunner) Run(_ context.Context, _ types.JobRequest) (*types.PipelineResult, error) {
	return f.result, f.err
}

func (f *fakeRunner) ScoreCandidates(_ context.Context, _ types.ScoreCandidatesRequest) (*types.PipelineResult, error) {
	return f.result, f.err
}

func (f *fakeRunner) Close() { f.closed = true }

// blockingRunner holds its run open until released, for observing
// in-flight job state.
type blockingRunner struct {
	fakeRunner
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, req types.JobRequest) (*types.PipelineResult, error) {
	<-b.release
	return b.fakeRunner.Run(ctx, req)
}

type fakeWriter struct {
	messages []types.OutreachMessage
	err      error
	closed   bool
}

func (f *fakeWriter) GenerateOutreach(_ context.Context, _ types.OutreachRequest) ([]types.OutreachMessage, error) {
	return f.messages, f.err
}

func (f *fakeWriter) Close() { f.closed = true }

type fakeSearcher struct {
	urls   []string
	closed bool
}

func (f *fakeSearcher) Search(_ context.Context, _, searchQuery string, _ int) (string, []string) {
	if searchQuery == "" {
		searchQuery = "generated query"
	}
	return searchQuery, f.urls
}

func (f *fakeSearcher) Close() { f.closed = true }

func newTestServer(t *testing.T, runner *fakeRunner, searcher *fakeSearcher) *Server {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	s, err := New(Config{Port: 0, ResultsDir: t.TempDir()})
	require.NoError(t, err)

	s.newRunner = func(context.Context) (jobRunner, error) {
		if runner == nil {
			return nil, pipeline.ErrMissingSessionCookie
		}
		return runner, nil
	}
	s.newSearcher = func(context.Context) (profileSearcher, error) {
		if searcher == nil {
			return nil, fmt.Errorf("no searcher")
		}
		return searcher, nil
	}
	s.newWriter = func(context.Context) (messageWriter, error) {
		return nil, fmt.Errorf("no writer")
	}
	return s
}

func doJSON(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:5555"
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func scoredResult() *types.PipelineResult {
	return &types.PipelineResult{
		SearchQueryUsed: "golang developer",
		Results: []types.CandidateResult{
			{Evaluation: &types.CandidateEvaluation{Name: "Jane Doe", FitScore: types.NewScore(8.2)}},
		},
	}
}

func TestHandleRunJobSync(t *testing.T) {
	runner := &fakeRunner{result: scoredResult()}
	s := newTestServer(t, runner, nil)

	w := doJSON(s, "POST", "/jobs/sync", types.JobRequest{JobDescription: "Backend role"})
	require.Equal(t, http.StatusOK, w.Code)

	var formatted store.FormattedResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &formatted))
	assert.Equal(t, store.StatusCompleted, formatted.Status)
	assert.Equal(t, "golang developer", formatted.SearchQueryUsed)
	assert.Equal(t, 1, formatted.CandidatesFound)
	assert.True(t, runner.closed)

	// The envelope is also retrievable by job ID afterwards.
	w = doJSON(s, "GET", "/results/"+formatted.JobID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleRunJobSync_BadRequests(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: scoredResult()}, nil)

	w := doJSON(s, "POST", "/jobs/sync", map[string]string{"job_description": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/jobs/sync", bytes.NewBufferString("{broken"))
	req.RemoteAddr = "10.0.0.1:5555"
	w2 := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}

func TestHandleRunJobSync_MissingCookieIs503(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := doJSON(s, "POST", "/jobs/sync", types.JobRequest{JobDescription: "Backend role"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleRunJob_Async(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: scoredResult()}, nil)

	w := doJSON(s, "POST", "/jobs", types.JobRequest{JobDescription: "Backend role"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted JobAcceptedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.NotEmpty(t, accepted.JobID)
	assert.Equal(t, store.StatusRunning, accepted.Status)

	// The background run persists completed results under the returned job ID.
	require.Eventually(t, func() bool {
		result, err := s.results.Load(accepted.JobID)
		return err == nil && result != nil && result.Status == store.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	result, err := s.results.Load(accepted.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CandidatesFound)
}

func TestHandleRunJob_RunningEnvelopeVisibleInFlight(t *testing.T) {
	runner := &blockingRunner{
		fakeRunner: fakeRunner{result: scoredResult()},
		release:    make(chan struct{}),
	}
	s := newTestServer(t, nil, nil)
	s.newRunner = func(context.Context) (jobRunner, error) { return runner, nil }

	w := doJSON(s, "POST", "/jobs", types.JobRequest{JobDescription: "Backend role"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted JobAcceptedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

	// The run is still blocked, so the ID resolves to a running envelope.
	result, err := s.results.Load(accepted.JobID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, store.StatusRunning, result.Status)
	assert.Equal(t, "Backend role", result.JobDescription)

	close(runner.release)

	// Completion overwrites the placeholder under the same ID.
	require.Eventually(t, func() bool {
		result, err := s.results.Load(accepted.JobID)
		return err == nil && result != nil && result.Status == store.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleGetResults_NotFound(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := doJSON(s, "GET", "/results/4dfb5a90-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListResults(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: scoredResult()}, nil)

	doJSON(s, "POST", "/jobs/sync", types.JobRequest{JobDescription: "Backend role"})

	w := doJSON(s, "GET", "/results", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing map[string][]store.JobSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing["jobs"], 1)
}

func TestHandleSearchCandidates(t *testing.T) {
	searcher := &fakeSearcher{urls: []string{
		"https://www.linkedin.com/in/janedoe",
		"https://www.linkedin.com/in/johnsmith",
	}}
	s := newTestServer(t, nil, searcher)

	w := doJSON(s, "POST", "/candidates/search", types.CandidateSearchRequest{JobDescription: "Backend role"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "generated query", resp.SearchQueryUsed)
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, "Profile Found", resp.Candidates[0].Name)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", resp.Candidates[0].ProfileURL)
	assert.True(t, searcher.closed)
}

func TestHandleScoreCandidates(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: scoredResult()}, nil)

	w := doJSON(s, "POST", "/candidates/score", types.ScoreCandidatesRequest{
		JobDescription: "Backend role",
		Candidates:     []types.CandidateRef{{ProfileURL: "https://www.linkedin.com/in/janedoe"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.ScoredCandidates, 1)
	assert.Equal(t, "Jane Doe", resp.ScoredCandidates[0].Evaluation.Name)
}

func TestHandleScoreCandidates_Validation(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: scoredResult()}, nil)

	// No candidates
	w := doJSON(s, "POST", "/candidates/score", types.ScoreCandidatesRequest{JobDescription: "Backend role"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not a URL
	w = doJSON(s, "POST", "/candidates/score", types.ScoreCandidatesRequest{
		JobDescription: "Backend role",
		Candidates:     []types.CandidateRef{{ProfileURL: "janedoe"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGenerateOutreach(t *testing.T) {
	writer := &fakeWriter{messages: []types.OutreachMessage{
		{Candidate: "Jane Doe", Message: "Hi Jane!", FitScore: types.NewScore(8.0)},
	}}
	// No runner: message generation must not depend on the browser side of
	// the pipeline or its session cookie.
	s := newTestServer(t, nil, nil)
	s.newWriter = func(context.Context) (messageWriter, error) { return writer, nil }

	w := doJSON(s, "POST", "/candidates/outreach", types.OutreachRequest{
		JobDescription: "Backend role",
		Profiles:       []types.ExtractedProfile{{ProfileURL: "https://www.linkedin.com/in/janedoe", Name: "Jane Doe"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp OutreachResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "Hi Jane!", resp.Messages[0].Message)
	assert.True(t, writer.closed)
}

func TestHandleGenerateOutreach_ServedWhileRunSlotsBusy(t *testing.T) {
	writer := &fakeWriter{messages: []types.OutreachMessage{{Candidate: "Jane Doe", Message: "Hi Jane!"}}}
	s := newTestServer(t, nil, nil)
	s.newWriter = func(context.Context) (messageWriter, error) { return writer, nil }

	// Exhaust the pipeline run slots; outreach generation runs no browser
	// and must keep responding.
	require.NoError(t, s.runSlots.Acquire(context.Background(), maxConcurrentRuns))
	defer s.runSlots.Release(maxConcurrentRuns)

	w := doJSON(s, "POST", "/candidates/outreach", types.OutreachRequest{
		JobDescription: "Backend role",
		Profiles:       []types.ExtractedProfile{{ProfileURL: "https://www.linkedin.com/in/janedoe", Name: "Jane Doe"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := doJSON(s, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
