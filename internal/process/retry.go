package process

import (
	"math/rand"
	"time"

	"github.com/frontendtony/dualexe/internal/config"
)

// jitterFraction spreads relaunch delays so crash-looping labels drift apart.
const jitterFraction = 0.1

// nextBackoff returns how long to wait before automatic relaunch number
// attempt (counting from zero). The delay starts at InitialBackoff, grows by
// BackoffMultiplier per attempt up to MaxBackoff, and is jittered. A zero
// InitialBackoff relaunches immediately.
func nextBackoff(attempt int, cfg config.RetryConfig) time.Duration {
	delay := cfg.InitialBackoff.Duration()
	if delay <= 0 {
		return 0
	}
	limit := cfg.MaxBackoff.Duration()
	for i := 0; i < attempt; i++ {
		if limit > 0 && delay >= limit {
			break
		}
		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
	}
	if limit > 0 && delay > limit {
		delay = limit
	}
	return jitter(delay, jitterFraction)
}

// jitter moves d by a random amount of at most frac*d in either direction.
func jitter(d time.Duration, frac float64) time.Duration {
	spread := float64(d) * frac
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// shouldRetry reports whether a label that has already been relaunched
// attempt times may be relaunched again. MaxAttempts 0 never gives up.
func shouldRetry(attempt int, cfg config.RetryConfig) bool {
	return cfg.MaxAttempts == 0 || attempt < cfg.MaxAttempts
}
