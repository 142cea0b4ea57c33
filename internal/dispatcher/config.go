package dispatcher

import (
	"time"

	"golang.org/x/time/rate"

	"jobcore/internal/config"
	"jobcore/pkg/backoff"
)

// Delivery defaults.
const (
	defaultBufferSize     = 10000
	defaultWorkers        = 4
	defaultHTTPTimeout    = 10 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultJitter         = 0.2
	deliveryTimeout       = 30 * time.Second
)

// MemoryConfig holds configuration for the in-memory dispatcher.
type MemoryConfig struct {
	BufferSize  int           // pending events buffer (default: 10000)
	Workers     int           // concurrent delivery goroutines (default: 4)
	HTTPTimeout time.Duration // per-request timeout (default: 10s)
	MaxRetries  int           // retries after the first attempt (default: 3)

	// RatePerSecond caps outgoing requests across all workers. Zero means
	// unlimited. Burst defaults to Workers.
	RatePerSecond float64
	Burst         int

	Backoff backoff.Config
}

// LoadConfigFromEnv loads dispatcher configuration from environment variables.
func LoadConfigFromEnv() MemoryConfig {
	cfg := MemoryConfig{
		BufferSize:    config.GetIntEnv("PUBLISHER_BUFFER_SIZE", defaultBufferSize),
		Workers:       config.GetIntEnv("PUBLISHER_WORKERS", defaultWorkers),
		HTTPTimeout:   config.GetDurationEnv("PUBLISHER_HTTP_TIMEOUT", defaultHTTPTimeout),
		MaxRetries:    config.GetIntEnv("PUBLISHER_MAX_RETRIES", defaultMaxRetries),
		RatePerSecond: config.GetFloatEnv("PUBLISHER_RATE", 0),
		Burst:         config.GetIntEnv("PUBLISHER_BURST", 0),
	}
	return cfg.withDefaults()
}

// withDefaults fills in zero values with defaults.
func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RatePerSecond < 0 {
		c.RatePerSecond = 0
	}
	if c.Burst <= 0 {
		c.Burst = c.Workers
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff.Initial = defaultInitialBackoff
	}
	if c.Backoff.Max <= 0 {
		c.Backoff.Max = defaultMaxBackoff
	}
	if c.Backoff.Jitter == 0 {
		c.Backoff.Jitter = defaultJitter
	}
	return c
}

// limiter returns the token bucket for the configured rate.
func (c MemoryConfig) limiter() *rate.Limiter {
	if c.RatePerSecond == 0 {
		return rate.NewLimiter(rate.Inf, c.Burst)
	}
	return rate.NewLimiter(rate.Limit(c.RatePerSecond), c.Burst)
}
