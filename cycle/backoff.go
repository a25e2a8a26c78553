package cycle

import (
	"math/rand"
	"time"
)

// BackoffConfig parameterizes the retry delay arithmetic: delay =
// min(baseDelayMs * 2^attempt, maxDelayMs) plus up to 20% jitter.
type BackoffConfig struct {
	BaseDelayMs int
	MaxDelayMs  int
}

// DefaultBackoff is the engine's default retry schedule.
var DefaultBackoff = BackoffConfig{BaseDelayMs: 1000, MaxDelayMs: 30000}

// Delay returns the backoff delay for the given zero-based attempt
// number.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	base := c.BaseDelayMs
	if base <= 0 {
		base = 1000
	}
	maxMs := c.MaxDelayMs
	if maxMs <= 0 {
		maxMs = 30000
	}

	ms := base
	for i := 0; i < attempt; i++ {
		ms *= 2
		if ms >= maxMs {
			ms = maxMs
			break
		}
	}

	jitter := time.Duration(rand.Intn(ms/5+1)) * time.Millisecond
	return time.Duration(ms)*time.Millisecond + jitter
}
