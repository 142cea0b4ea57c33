package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcore/pkg/cloudevent"
)

func TestWaitFor_ImmediateSuccess(t *testing.T) {
	t.Parallel()
	assert.True(t, WaitFor(t, func() bool { return true }, WithTimeout(time.Second)))
}

func TestWaitFor_EventualSuccess(t *testing.T) {
	t.Parallel()
	counter := 0
	ok := WaitFor(t, func() bool {
		counter++
		return counter >= 3
	}, WithTimeout(time.Second), WithInterval(time.Millisecond))

	assert.True(t, ok)
	assert.GreaterOrEqual(t, counter, 3)
}

func TestWaitFor_Timeout(t *testing.T) {
	t.Parallel()
	start := time.Now()
	ok := WaitFor(t, func() bool { return false }, WithTimeout(50*time.Millisecond), WithInterval(10*time.Millisecond))

	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSink(t *testing.T) {
	t.Parallel()
	sink := NewSink(t, http.StatusServiceUnavailable)
	sender := cloudevent.NewSender(time.Second)
	event := cloudevent.New("ducc.job.snapshot", "test", "1", map[string]any{"code": "0"})

	err := sender.Send(context.Background(), sink.URL, event, cloudevent.SendOptions{SigningKey: "k"})
	require.Error(t, err)
	assert.Equal(t, 0, sink.Len())

	require.NoError(t, sender.Send(context.Background(), sink.URL, event, cloudevent.SendOptions{SigningKey: "k"}))
	require.Equal(t, 1, sink.Len())
	assert.Equal(t, event.ID, sink.Events()[0].ID)
	assert.NotEmpty(t, sink.Signatures()[0])
}
