// Package backoff provides exponential backoff delays for retried delivery.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Config for exponential backoff. Zero values use defaults.
type Config struct {
	Initial time.Duration // default: 100ms
	Max     time.Duration // default: 5s
	// Jitter in [0,1] shortens each delay by a random fraction up to this
	// value. Zero disables jitter.
	Jitter float64
}

// Exponential calculates exponential backoff for a given attempt.
// Attempt 1 returns initial, attempt 2 returns initial*2, etc.
func Exponential(attempt int, cfg *Config) time.Duration {
	initial := 100 * time.Millisecond
	maxBackoff := 5 * time.Second
	var jitter float64
	if cfg != nil {
		if cfg.Initial > 0 {
			initial = cfg.Initial
		}
		if cfg.Max > 0 {
			maxBackoff = cfg.Max
		}
		jitter = min(max(cfg.Jitter, 0), 1)
	}

	d := float64(initial)
	if attempt > 1 {
		d = min(d*math.Pow(2.0, float64(attempt-1)), float64(maxBackoff))
	}
	if jitter > 0 {
		d -= d * jitter * rand.Float64()
	}
	return time.Duration(d)
}

// Wait blocks for the delay of the given attempt or until ctx is done.
func Wait(ctx context.Context, attempt int, cfg *Config) error {
	t := time.NewTimer(Exponential(attempt, cfg))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
