package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// candidateTTL bounds how long a cached profile analysis stays usable.
const candidateTTL = 7 * 24 * time.Hour

// candidateSchema is applied on every open so a fresh database works without
// a separate migration step.
const candidateSchema = `CREATE TABLE IF NOT EXISTS candidates (
	linkedin_url TEXT PRIMARY KEY,
	profile JSONB NOT NULL,
	evaluation JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// CachedCandidate is one cache hit: the extracted profile and its evaluation
// as stored on a previous run.
type CachedCandidate struct {
	Profile    *types.ExtractedProfile
	Evaluation *types.CandidateEvaluation
	UpdatedAt  time.Time
}

// CandidateCache is a PostgreSQL-backed cache of analyzed candidates, keyed
// by profile URL.
type CandidateCache struct {
	pool *pgxpool.Pool
}

// OpenCandidateCache connects the cache pool. An empty database URL returns
// (nil, nil): the cache is optional and callers run without one.
func OpenCandidateCache(ctx context.Context, databaseURL string) (*CandidateCache, error) {
	if databaseURL == "" {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to candidate cache: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping candidate cache: %w", err)
	}
	if _, err := pool.Exec(ctx, candidateSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create candidates table: %w", err)
	}

	return &CandidateCache{pool: pool}, nil
}

// Close closes the connection pool.
func (c *CandidateCache) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Lookup returns the cached analysis for a profile URL, or (nil, nil) when
// there is no entry fresh enough to reuse.
func (c *CandidateCache) Lookup(ctx context.Context, profileURL string) (*CachedCandidate, error) {
	var profileJSON, evaluationJSON []byte
	var updatedAt time.Time

	err := c.pool.QueryRow(ctx,
		`SELECT profile, evaluation, updated_at FROM candidates
		 WHERE linkedin_url = $1 AND updated_at >= $2`,
		profileURL, time.Now().UTC().Add(-candidateTTL),
	).Scan(&profileJSON, &evaluationJSON, &updatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up candidate %s: %w", profileURL, err)
	}

	cached := CachedCandidate{UpdatedAt: updatedAt}
	if err := json.Unmarshal(profileJSON, &cached.Profile); err != nil {
		return nil, fmt.Errorf("failed to parse cached profile for %s: %w", profileURL, err)
	}
	if err := json.Unmarshal(evaluationJSON, &cached.Evaluation); err != nil {
		return nil, fmt.Errorf("failed to parse cached evaluation for %s: %w", profileURL, err)
	}
	return &cached, nil
}

// Store upserts the analysis for a profile URL, refreshing its timestamp.
func (c *CandidateCache) Store(ctx context.Context, profileURL string, profile *types.ExtractedProfile, evaluation *types.CandidateEvaluation) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	evaluationJSON, err := json.Marshal(evaluation)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	_, err = c.pool.Exec(ctx,
		`INSERT INTO candidates (linkedin_url, profile, evaluation, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (linkedin_url) DO UPDATE SET profile = $2, evaluation = $3, updated_at = NOW()`,
		profileURL, profileJSON, evaluationJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to cache candidate %s: %w", profileURL, err)
	}
	return nil
}
