package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{6, 3200 * time.Millisecond},
		{7, 5 * time.Second}, // capped at max
		{40, 5 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Exponential(tt.attempt, nil), "attempt %d", tt.attempt)
	}
}

func TestExponential_CustomConfig(t *testing.T) {
	t.Parallel()
	cfg := &Config{Initial: 50 * time.Millisecond, Max: 300 * time.Millisecond}

	assert.Equal(t, 50*time.Millisecond, Exponential(1, cfg))
	assert.Equal(t, 200*time.Millisecond, Exponential(3, cfg))
	assert.Equal(t, 300*time.Millisecond, Exponential(4, cfg))
}

func TestExponential_Jitter(t *testing.T) {
	t.Parallel()
	cfg := &Config{Initial: time.Second, Max: 10 * time.Second, Jitter: 0.5}

	for range 100 {
		d := Exponential(2, cfg)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestWait_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, 1, &Config{Initial: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait_Elapses(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Wait(context.Background(), 1, &Config{Initial: time.Millisecond}))
}
