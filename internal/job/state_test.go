package job

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcore/internal/apperrors"
	"jobcore/pkg/jobid"
)

func TestState_Predicates(t *testing.T) {
	t.Parallel()

	type row struct {
		active, schedulable, initialized, runnable bool
		completing, completed, finished, operational bool
	}
	tests := map[State]row{
		StateUndefined:           {operational: true},
		StateWaitingForDriver:    {active: true, operational: true},
		StateWaitingForServices:  {active: true, operational: true},
		StateWaitingForResources: {active: true, schedulable: true, operational: true},
		StateInitializing:        {active: true, schedulable: true, operational: true},
		StateRunning:             {active: true, schedulable: true, initialized: true, runnable: true, operational: true},
		StateCompleting:          {initialized: true, completing: true, finished: true, operational: true},
		StateCompleted:           {initialized: true, completed: true, finished: true},
	}
	require.Len(t, tests, len(States))

	for s, want := range tests {
		t.Run(s.String(), func(t *testing.T) {
			t.Parallel()
			got := row{
				active:      s.IsActive(),
				schedulable: s.IsSchedulable(),
				initialized: s.IsInitialized(),
				runnable:    s.IsRunnable(),
				completing:  s.IsCompleting(),
				completed:   s.IsCompleted(),
				finished:    s.IsFinished(),
				operational: s.IsOperational(),
			}
			assert.Equal(t, want, got)

			j := New(jobid.New(1), KindJob, StandardInfo{})
			j.SetState(s)
			assert.Equal(t, want.active, j.IsActive())
			assert.Equal(t, want.finished, j.IsFinished())
			assert.Equal(t, want.operational, j.IsOperational())
		})
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	t.Parallel()
	for _, s := range States {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var parsed State
		require.NoError(t, parsed.UnmarshalText(b))
		assert.Equal(t, s, parsed)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("Sleeping")))
	assert.Equal(t, "State(42)", State(42).String())
}

func TestValidTransition(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateUndefined, StateWaitingForDriver, true},
		{StateUndefined, StateWaitingForResources, true},
		{StateUndefined, StateRunning, false},
		{StateWaitingForDriver, StateWaitingForServices, true},
		{StateWaitingForServices, StateWaitingForDriver, false},
		{StateWaitingForResources, StateInitializing, true},
		{StateInitializing, StateRunning, true},
		{StateRunning, StateInitializing, false},
		{StateRunning, StateCompleting, true},
		{StateRunning, StateCompleted, true},
		{StateCompleting, StateCompleted, true},
		{StateCompleting, StateRunning, false},
		{StateCompleting, StateCompleting, false},
		{StateCompleted, StateCompleting, false},
		{StateCompleted, StateUndefined, false},
		{State(99), StateCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestJob_SetStateIsUnconditional(t *testing.T) {
	t.Parallel()
	j := New(jobid.New(3), KindService, StandardInfo{})

	j.SetState(StateCompleted)
	j.SetState(StateWaitingForDriver)
	assert.Equal(t, StateWaitingForDriver, j.State())
}

func TestJob_Advance(t *testing.T) {
	t.Parallel()
	j := New(jobid.New(4), KindJob, StandardInfo{})

	for _, to := range []State{StateWaitingForDriver, StateInitializing, StateRunning, StateCompleting, StateCompleted} {
		_, err := j.Advance(to)
		require.NoError(t, err, to.String())
	}

	from, err := j.Advance(StateRunning)
	require.Error(t, err)
	assert.Equal(t, StateCompleted, from)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, StateCompleted, j.State())
}
