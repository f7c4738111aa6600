// rate_limiter.go - Per-account rate limiting for unlock requests.
package main

import (
	"sync"
	"time"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	mu           sync.Mutex
	tokens       int
	maxTokens    int
	refillRate   int
	lastRefill   time.Time
	refillPeriod time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxTokens int, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:       maxTokens,
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		lastRefill:   time.Now(),
		refillPeriod: refillPeriod,
	}
}

// Allow checks if a request is allowed and consumes a token if so
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	refillCount := int(now.Sub(rl.lastRefill) / rl.refillPeriod)
	if refillCount > 0 {
		rl.tokens += refillCount * rl.refillRate
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// GetTokens returns the current number of available tokens
func (rl *RateLimiter) GetTokens() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens
}

// AccountRateLimiter manages rate limiting per account, so one user
// flooding unlock requests cannot starve the matching loop for others
type AccountRateLimiter struct {
	limiters     map[string]*RateLimiter
	mu           sync.RWMutex
	maxTokens    int
	refillRate   int
	refillPeriod time.Duration
}

// NewAccountRateLimiter creates a new per-account rate limiter
func NewAccountRateLimiter(maxTokens int, refillRate int, refillPeriod time.Duration) *AccountRateLimiter {
	return &AccountRateLimiter{
		limiters:     make(map[string]*RateLimiter),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
	}
}

// Allow checks if a request from an account is allowed
func (arl *AccountRateLimiter) Allow(accountID string) bool {
	arl.mu.Lock()
	limiter, exists := arl.limiters[accountID]
	if !exists {
		limiter = NewRateLimiter(arl.maxTokens, arl.refillRate, arl.refillPeriod)
		arl.limiters[accountID] = limiter
	}
	arl.mu.Unlock()

	return limiter.Allow()
}

// GetTokens returns the current number of available tokens for an account
func (arl *AccountRateLimiter) GetTokens(accountID string) int {
	arl.mu.RLock()
	limiter, exists := arl.limiters[accountID]
	arl.mu.RUnlock()

	if !exists {
		return arl.maxTokens
	}
	return limiter.GetTokens()
}
