package process

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcore/pkg/jobid"
)

func TestMap_Aggregates(t *testing.T) {
	t.Parallel()
	g := jobid.NewGenerator(1)
	m := NewMap()

	m.Put(g.Next(), Status{Alive: true, Ready: true, Sample: Sample{SwapBytes: 100, PageIns: 3}})
	m.Put(g.Next(), Status{Alive: true, Sample: Sample{SwapBytes: 400, PageIns: 1}})
	m.Put(g.Next(), Status{Failure: FailureInit})
	m.Put(g.Next(), Status{Failure: FailureRuntime, Sample: Sample{SwapBytes: 50}})
	m.Put(g.Next(), Status{Failure: FailureRuntime, Deallocated: true})

	sum := m.Summarize()
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 2, m.AliveCount())
	assert.Equal(t, 1, m.ReadyCount())
	assert.Equal(t, 1, m.FailedInitializationCount())
	assert.Equal(t, 2, m.FailedNotInitializationCount())
	assert.Equal(t, 2, m.FailedUnexpectedCount())
	assert.Equal(t, int64(550), m.SwapBytes())
	assert.Equal(t, int64(400), m.MaxSwapBytes())
	assert.Equal(t, int64(4), m.PageIns())
}

func TestMap_NilIsEmpty(t *testing.T) {
	t.Parallel()
	var m *Map

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, Summary{}, m.Summarize())
	assert.Nil(t, m.Snapshot())
	assert.Equal(t, uint64(0), m.Hash())
	assert.True(t, m.Equal(NewMap()))
	assert.Equal(t, 0, m.DeepCopy().Len())

	_, ok := m.Get(jobid.New(1))
	assert.False(t, ok)
}

func TestMap_UpdateOverwritesSample(t *testing.T) {
	t.Parallel()
	id := jobid.New(1)
	m := NewMap()

	m.Update(id, func(s *Status) { s.Sample.SwapBytes = 10 })
	got := m.Update(id, func(s *Status) { s.Sample.SwapBytes = 3; s.Alive = true })

	assert.Equal(t, int64(3), got.Sample.SwapBytes)
	assert.True(t, got.Alive)
	assert.Equal(t, int64(3), m.SwapBytes())
}

func TestMap_Remove(t *testing.T) {
	t.Parallel()
	id := jobid.New(1)
	m := NewMap()
	m.Put(id, Status{Failure: FailureInit})

	require.Equal(t, 1, m.FailedInitializationCount())
	assert.True(t, m.Remove(id))
	assert.False(t, m.Remove(id))
	assert.Equal(t, 0, m.FailedInitializationCount())
}

func TestMap_DeepCopyIsIndependent(t *testing.T) {
	t.Parallel()
	id := jobid.New(1)
	m := NewMap()
	m.Put(id, Status{Ready: true})

	c := m.DeepCopy()
	m.Put(id, Status{Ready: false})

	assert.Equal(t, 1, c.ReadyCount())
	assert.Equal(t, 0, m.ReadyCount())
}

func TestMap_FindFriendly(t *testing.T) {
	t.Parallel()
	m := NewMap()
	id := jobid.New(17)
	m.Put(jobid.New(3), Status{})
	m.Put(id, Status{PID: "4242"})

	e, ok := m.FindFriendly(17)
	require.True(t, ok)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "4242", e.Status.PID)

	_, ok = m.FindFriendly(99)
	assert.False(t, ok)
}

func TestMap_EqualAndHash(t *testing.T) {
	t.Parallel()
	a1, a2 := jobid.New(1), jobid.New(2)

	left := NewMap()
	left.Put(a1, Status{Alive: true, Node: "n1"})
	left.Put(a2, Status{Failure: FailureInit})

	// same entries, inserted in the other order
	right := NewMap()
	right.Put(a2, Status{Failure: FailureInit})
	right.Put(a1, Status{Alive: true, Node: "n1"})

	assert.True(t, left.Equal(right))
	assert.Equal(t, left.Hash(), right.Hash())

	right.Put(a1, Status{Alive: true, Node: "n2"})
	assert.False(t, left.Equal(right))
	assert.NotEqual(t, left.Hash(), right.Hash())
}

func TestMap_SnapshotOrdered(t *testing.T) {
	t.Parallel()
	m := NewMap()
	for _, n := range []int64{5, 1, 3} {
		m.Put(jobid.New(n), Status{})
	}

	snap := m.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(1), snap[0].ID.Friendly)
	assert.Equal(t, int64(3), snap[1].ID.Friendly)
	assert.Equal(t, int64(5), snap[2].ID.Friendly)
}

// The writer adds and removes swap-free processes, so every snapshot must
// still report the swap of the two fixed processes.
func TestMap_UpdateFriendly(t *testing.T) {
	t.Parallel()
	m := NewMap()
	existing := jobid.New(17)
	m.Put(existing, Status{PID: "4242"})

	e := m.UpdateFriendly(17, func(s *Status) { s.Alive = true })
	assert.Equal(t, existing, e.ID)
	assert.Equal(t, Status{Alive: true, PID: "4242"}, e.Status)

	added := m.UpdateFriendly(18, func(s *Status) { s.Ready = true })
	assert.Equal(t, int64(18), added.ID.Friendly)
	assert.Equal(t, 2, m.Len())

	again := m.UpdateFriendly(18, func(s *Status) { s.Alive = true })
	assert.Equal(t, added.ID, again.ID)
	assert.Equal(t, Status{Alive: true, Ready: true}, again.Status)
}

func TestMap_ConcurrentFirstUpdatesCreateOneEntry(t *testing.T) {
	t.Parallel()
	m := NewMap()

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			m.UpdateFriendly(42, func(s *Status) { s.Alive = true })
		})
	}
	wg.Wait()

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.AliveCount())
}

func TestMap_ConcurrentAggregatesAreConsistent(t *testing.T) {
	t.Parallel()
	m := NewMap()
	a, b := jobid.New(1), jobid.New(2)
	m.Put(a, Status{Sample: Sample{SwapBytes: 10}})
	m.Put(b, Status{Sample: Sample{SwapBytes: 10}})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Go(func() {
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := jobid.New(int64(100 + i%10))
			m.Put(id, Status{Alive: true})
			m.Remove(id)
		}
	})

	for range 1000 {
		assert.Equal(t, int64(20), m.SwapBytes())
	}
	close(stop)
	wg.Wait()
}

func TestFailure_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "none", FailureNone.String())
	assert.Equal(t, "init", FailureInit.String())
	assert.Equal(t, "runtime", FailureRuntime.String())
	assert.Equal(t, "unknown", Failure(9).String())
}
