package infra

import (
	"sync"
	"time"
)

// Throttle is a token-bucket intake limiter. The proposal feed uses it to
// shed load from a misbehaving prediction source instead of flooding the
// engine inbox.
type Throttle struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewThrottle creates a throttle with the given burst size and refill rate.
func NewThrottle(burst int, perSecond float64) *Throttle {
	return &Throttle{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: perSecond,
		lastRefill: time.Now(),
	}
}

// TryAcquire attempts to take a token without blocking.
// Returns false when the bucket is empty; the caller drops the message.
func (t *Throttle) TryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refill()

	if t.tokens >= 1 {
		t.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time. Must be called with mutex held.
func (t *Throttle) refill() {
	now := time.Now()
	elapsed := now.Sub(t.lastRefill).Seconds()
	t.tokens += elapsed * t.refillRate

	if t.tokens > t.maxTokens {
		t.tokens = t.maxTokens
	}

	t.lastRefill = now
}
