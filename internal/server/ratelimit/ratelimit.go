// Package ratelimit provides per-client token bucket rate limiting for the
// sourcing API. Pipeline runs drive a real browser and LLM calls, so the
// expensive endpoints get far stricter limits than reads.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// tokenBucket refills at a steady rate up to a burst capacity.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(capacity int, refillRate float64) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// refillLocked credits tokens for the elapsed time. Callers hold mu.
func (b *tokenBucket) refillLocked(now time.Time) {
	b.tokens = min(float64(b.capacity), b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now
}

func (b *tokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// status reports remaining tokens and when the bucket will be full again.
func (b *tokenBucket) status() (remaining int, resetTime time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refillLocked(now)

	remaining = int(b.tokens)
	resetTime = now
	if b.tokens < float64(b.capacity) {
		deficit := float64(b.capacity) - b.tokens
		resetTime = now.Add(time.Duration(deficit / b.refillRate * float64(time.Second)))
	}
	return remaining, resetTime
}

// Info describes the rate limit state returned with each decision.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// EndpointConfig is the limit for one endpoint. Paths ending in "/" match by
// prefix; a Limit of zero means unlimited.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// MatchEndpoint finds the config for a path and method: exact match first,
// then prefix match for configs whose path ends in "/". Health checks are
// always unlimited.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method == method && strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			return cfg
		}
	}
	return nil
}

// Limiter tracks one bucket per client, endpoint, and method.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	config  *Config

	accessMu   sync.Mutex
	lastAccess map[string]time.Time

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
}

// NewLimiter creates a limiter; a nil config gets permissive defaults.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
			Whitelist:       make(map[string]bool),
			Blacklist:       make(map[string]bool),
		}
	}

	l := &Limiter{
		buckets:    make(map[string]*tokenBucket),
		config:     config,
		lastAccess: make(map[string]time.Time),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupTicker = time.NewTicker(config.CleanupInterval)
		l.cleanupStop = make(chan struct{})
		go l.cleanupLoop()
	}

	return l
}

// Allow decides whether a request from clientID may hit the endpoint.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	endpoint := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if endpoint == nil {
		endpoint = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if endpoint.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	key := clientID + ":" + path + ":" + method
	bucket := l.bucket(key, endpoint)

	l.accessMu.Lock()
	l.lastAccess[key] = time.Now()
	l.accessMu.Unlock()

	allowed := bucket.take()
	remaining, resetTime := bucket.status()

	info := Info{
		Allowed:   allowed,
		Limit:     endpoint.Limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}
	if !allowed {
		info.RetryAfter = max(time.Until(resetTime), 0)
	}
	return allowed, info
}

func (l *Limiter) bucket(key string, endpoint *EndpointConfig) *tokenBucket {
	l.mu.RLock()
	bucket, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return bucket
	}

	capacity := endpoint.Burst
	if capacity <= 0 {
		capacity = endpoint.Limit
	}
	bucket = newTokenBucket(capacity, float64(endpoint.Limit)/endpoint.Window.Seconds())

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.buckets[key]; ok {
		return existing
	}
	l.buckets[key] = bucket
	return bucket
}

func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.dropIdleBuckets(time.Now().Add(-1 * time.Hour))
		case <-l.cleanupStop:
			return
		}
	}
}

// dropIdleBuckets removes buckets not touched since the cutoff.
func (l *Limiter) dropIdleBuckets(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accessMu.Lock()
	defer l.accessMu.Unlock()

	for key, last := range l.lastAccess {
		if last.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.lastAccess, key)
		}
	}
}

// Stop halts the cleanup goroutine.
func (l *Limiter) Stop() {
	if l.cleanupTicker != nil {
		l.cleanupTicker.Stop()
	}
	if l.cleanupStop != nil {
		close(l.cleanupStop)
	}
}
