// Package server provides the HTTP REST API for the sourcing agent.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/synapse-ai/sourcing-agent/internal/pipeline"
	"github.com/synapse-ai/sourcing-agent/internal/server/ratelimit"
	"github.com/synapse-ai/sourcing-agent/internal/store"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// maxConcurrentRuns bounds simultaneous pipeline executions; each run owns a
// headless Chrome instance, so this stays small.
const maxConcurrentRuns = 2

// jobRunner is the subset of pipeline behavior the handlers need, split out
// so tests can substitute a fake.
type jobRunner interface {
	Run(ctx context.Context, req types.JobRequest) (*types.PipelineResult, error)
	ScoreCandidates(ctx context.Context, req types.ScoreCandidatesRequest) (*types.PipelineResult, error)
	Close()
}

// profileSearcher is the discovery-only subset, also a test seam.
type profileSearcher interface {
	Search(ctx context.Context, jobDescription, searchQuery string, maxResults int) (string, []string)
	Close()
}

// messageWriter is the evaluation-only subset used by the outreach endpoint.
type messageWriter interface {
	GenerateOutreach(ctx context.Context, req types.OutreachRequest) ([]types.OutreachMessage, error)
	Close()
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	pipelineCfg pipeline.Config
	results     *store.ResultStore
	rateLimiter *ratelimit.Limiter
	runSlots    *semaphore.Weighted
	newRunner   func(ctx context.Context) (jobRunner, error)
	newSearcher func(ctx context.Context) (profileSearcher, error)
	newWriter   func(ctx context.Context) (messageWriter, error)
}

// Config holds server configuration
type Config struct {
	Port       int
	ResultsDir string
	Pipeline   pipeline.Config
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	results, err := store.NewResultStore(cfg.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}

	s := &Server{
		pipelineCfg: cfg.Pipeline,
		results:     results,
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		runSlots:    semaphore.NewWeighted(maxConcurrentRuns),
	}
	s.newRunner = func(ctx context.Context) (jobRunner, error) {
		return pipeline.New(ctx, s.pipelineCfg)
	}
	s.newSearcher = func(ctx context.Context) (profileSearcher, error) {
		return pipeline.NewSearcher(ctx, s.pipelineCfg)
	}
	s.newWriter = func(ctx context.Context) (messageWriter, error) {
		return pipeline.NewMessageWriter(ctx, s.pipelineCfg)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleRunJob)
	mux.HandleFunc("POST /jobs/sync", s.handleRunJobSync)
	mux.HandleFunc("GET /results", s.handleListResults)
	mux.HandleFunc("GET /results/{id}", s.handleGetResults)
	mux.HandleFunc("POST /candidates/search", s.handleSearchCandidates)
	mux.HandleFunc("POST /candidates/score", s.handleScoreCandidates)
	mux.HandleFunc("POST /candidates/outreach", s.handleGenerateOutreach)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second, // Sync runs scrape every candidate before replying
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
// In the future, this could use X-Forwarded-For header (only from trusted proxies).
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
