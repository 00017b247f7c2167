// Package ratelimit bounds per-session ingest rate on POST
// /api/session/chunk: a lazily-allocated map of token-bucket limiters
// keyed by session id.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a per-session token-bucket rate limiter registry.
type Limiter struct {
	mu         sync.RWMutex
	limiters   map[string]*rate.Limiter
	ratePerSec float64
	burst      int
}

// New returns a limiter registry that, for each session id, allows
// ratePerSec chunk submissions per second with the given burst size.
func New(ratePerSec float64, burst int) *Limiter {
	return &Limiter{
		limiters:   make(map[string]*rate.Limiter),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Allow reports whether a chunk for sessionID may be accepted now,
// allocating a fresh bucket on first use.
func (l *Limiter) Allow(sessionID string) bool {
	return l.limiterFor(sessionID).Allow()
}

func (l *Limiter) limiterFor(sessionID string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[sessionID]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.limiters[sessionID]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Limit(l.ratePerSec), l.burst)
	l.limiters[sessionID] = lim
	return lim
}

// Forget drops a session's bucket, called when a session closes.
func (l *Limiter) Forget(sessionID string) {
	l.mu.Lock()
	delete(l.limiters, sessionID)
	l.mu.Unlock()
}
