package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcore/internal/testutil"
	"jobcore/pkg/backoff"
	"jobcore/pkg/cloudevent"
)

func fastConfig() MemoryConfig {
	return MemoryConfig{
		BufferSize:  100,
		Workers:     2,
		HTTPTimeout: 5 * time.Second,
		Backoff:     backoff.Config{Initial: time.Millisecond, Max: 5 * time.Millisecond},
	}
}

func snapshot(subject string) *cloudevent.CloudEvent {
	return cloudevent.New("ducc.job.snapshot", "test", subject, map[string]any{"code": "0"})
}

func closeDispatcher(t *testing.T, d *MemoryDispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, d.Close(ctx))
}

func TestMemoryDispatcher_Dispatch(t *testing.T) {
	t.Parallel()
	sink := testutil.NewSink(t)
	d := NewMemory(fastConfig(), nil)

	require.NoError(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: sink.URL}))
	testutil.MustWaitFor(t, func() bool { return d.Stats().Delivered == 1 })

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "ducc.job.snapshot", events[0].Type)
	assert.Equal(t, "1", events[0].Subject)
	closeDispatcher(t, d)
}

func TestMemoryDispatcher_BufferFull(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig()
	cfg.BufferSize = 2
	cfg.Workers = 1
	d := NewMemory(cfg, nil)

	var full int
	for range 6 {
		if err := d.Dispatch(&Event{Payload: snapshot("1"), Destination: server.URL}); err == ErrBufferFull {
			full++
		}
	}
	close(release)

	assert.Positive(t, full)
	assert.Equal(t, int64(full), d.Stats().Dropped)
	closeDispatcher(t, d)
}

func TestMemoryDispatcher_Retry(t *testing.T) {
	t.Parallel()
	sink := testutil.NewSink(t, http.StatusServiceUnavailable, http.StatusBadGateway)
	d := NewMemory(fastConfig(), nil)

	require.NoError(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: sink.URL}))
	testutil.MustWaitFor(t, func() bool { return d.Stats().Delivered == 1 })

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.RetriesTotal)
	assert.Zero(t, stats.Failed)
	closeDispatcher(t, d)
}

func TestMemoryDispatcher_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 2
	d := NewMemory(cfg, nil)

	require.NoError(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: server.URL}))
	testutil.MustWaitFor(t, func() bool { return d.Stats().Failed == 1 })
	assert.Equal(t, int32(3), attempts.Load())
	closeDispatcher(t, d)
}

func TestMemoryDispatcher_NoRetryOn4xx(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	d := NewMemory(fastConfig(), nil)
	require.NoError(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: server.URL}))

	testutil.MustWaitFor(t, func() bool { return d.Stats().Failed == 1 })
	assert.Equal(t, int32(1), attempts.Load())
	closeDispatcher(t, d)
}

func TestMemoryDispatcher_RateLimit(t *testing.T) {
	t.Parallel()
	sink := testutil.NewSink(t)

	cfg := fastConfig()
	cfg.RatePerSecond = 50
	cfg.Burst = 1
	d := NewMemory(cfg, nil)

	start := time.Now()
	for i := range 5 {
		require.NoError(t, d.Dispatch(&Event{Payload: snapshot(string(rune('1' + i))), Destination: sink.URL}))
	}
	testutil.MustWaitFor(t, func() bool { return d.Stats().Delivered == 5 })

	// One token up front, then one every 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Positive(t, d.Stats().Throttled)
	closeDispatcher(t, d)
}

func TestMemoryDispatcher_Signature(t *testing.T) {
	t.Parallel()
	sink := testutil.NewSink(t)
	d := NewMemory(fastConfig(), nil)

	require.NoError(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: sink.URL, SigningKey: "secret-key"}))
	testutil.MustWaitFor(t, func() bool { return sink.Len() == 1 })

	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, sink.Signatures()[0])
	closeDispatcher(t, d)
}

func TestMemoryDispatcher_GracefulShutdown(t *testing.T) {
	t.Parallel()
	sink := testutil.NewSink(t)
	d := NewMemory(fastConfig(), nil)

	for range 10 {
		require.NoError(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: sink.URL}))
	}
	closeDispatcher(t, d)

	assert.Equal(t, 10, sink.Len())
	assert.ErrorIs(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: sink.URL}), ErrClosed)
	assert.NoError(t, d.Close(context.Background()))
}

func TestMemoryDispatcher_ShutdownTimeout(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	cfg := fastConfig()
	cfg.Workers = 1
	d := NewMemory(cfg, nil)
	for range 3 {
		require.NoError(t, d.Dispatch(&Event{Payload: snapshot("1"), Destination: server.URL}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	testutil.MustWaitFor(t, func() bool { return d.Stats().Dropped == 3 })
}
