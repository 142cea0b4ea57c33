package process

import (
	"encoding/binary"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"jobcore/pkg/jobid"
)

// Entry pairs a process ID with its status.
type Entry struct {
	ID     jobid.ID `json:"id"`
	Status Status   `json:"status"`
}

// Summary holds every aggregate of a map computed from one snapshot.
type Summary struct {
	Total            int
	Alive            int
	Ready            int
	FailedUnexpected int
	FailedInit       int
	FailedRuntime    int
	SwapBytes        int64
	MaxSwapBytes     int64
	PageIns          int64
}

// Map holds process statuses keyed by process ID.
//
// Aggregate queries copy the entries under the read lock and compute outside
// of it, so a concurrent update never mixes into a single result and readers
// never hold the lock for the whole computation.
//
// A nil *Map behaves as an empty map for all read operations.
type Map struct {
	mu        sync.RWMutex
	processes map[jobid.ID]Status
}

// NewMap creates an empty process map.
func NewMap() *Map {
	return &Map{processes: make(map[jobid.ID]Status)}
}

// Put stores the status for a process, replacing any previous value.
func (m *Map) Put(id jobid.ID, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes[id] = s
}

// Update applies fn to the current status of a process (zero Status if absent)
// and stores the result.
func (m *Map) Update(id jobid.ID, fn func(*Status)) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.processes[id]
	fn(&s)
	m.processes[id] = s
	return s
}

// Remove deletes a process. Returns false if it was not present.
func (m *Map) Remove(id jobid.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processes[id]; !ok {
		return false
	}
	delete(m.processes, id)
	return true
}

// Get returns the status of a process.
func (m *Map) Get(id jobid.ID) (Status, bool) {
	if m == nil {
		return Status{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.processes[id]
	return s, ok
}

// Len returns the number of processes.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.processes)
}

// Snapshot returns a copy of all entries ordered by ID.
func (m *Map) Snapshot() []Entry {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.processes))
	for id, s := range m.processes {
		entries = append(entries, Entry{ID: id, Status: s})
	}
	m.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int { return a.ID.Compare(b.ID) })
	return entries
}

// DeepCopy returns an independent map with the same entries.
func (m *Map) DeepCopy() *Map {
	c := NewMap()
	if m == nil {
		return c
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, s := range m.processes {
		c.processes[id] = s
	}
	return c
}

// Summarize computes all aggregates from a single snapshot.
func (m *Map) Summarize() Summary {
	return summarize(m.Snapshot())
}

func summarize(entries []Entry) Summary {
	var sum Summary
	sum.Total = len(entries)
	for _, e := range entries {
		s := e.Status
		if s.Alive {
			sum.Alive++
		}
		if s.Ready {
			sum.Ready++
		}
		switch s.Failure {
		case FailureInit:
			sum.FailedInit++
		case FailureRuntime:
			sum.FailedRuntime++
		}
		if s.Failed() && !s.Deallocated {
			sum.FailedUnexpected++
		}
		sum.SwapBytes += s.Sample.SwapBytes
		sum.MaxSwapBytes = max(sum.MaxSwapBytes, s.Sample.SwapBytes)
		sum.PageIns += s.Sample.PageIns
	}
	return sum
}

// AliveCount returns the number of live processes.
func (m *Map) AliveCount() int { return m.Summarize().Alive }

// ReadyCount returns the number of initialized, serving processes.
func (m *Map) ReadyCount() int { return m.Summarize().Ready }

// FailedUnexpectedCount returns the number of failed processes that the
// orchestrator did not stop itself.
func (m *Map) FailedUnexpectedCount() int { return m.Summarize().FailedUnexpected }

// FailedInitializationCount returns the number of processes that failed
// during initialization.
func (m *Map) FailedInitializationCount() int { return m.Summarize().FailedInit }

// FailedNotInitializationCount returns the number of processes that failed
// after initialization.
func (m *Map) FailedNotInitializationCount() int { return m.Summarize().FailedRuntime }

// SwapBytes returns the summed swap usage in bytes.
func (m *Map) SwapBytes() int64 { return m.Summarize().SwapBytes }

// MaxSwapBytes returns the largest swap usage of any single process.
func (m *Map) MaxSwapBytes() int64 { return m.Summarize().MaxSwapBytes }

// PageIns returns the summed page-in count.
func (m *Map) PageIns() int64 { return m.Summarize().PageIns }

// FindFriendly scans the map for the process whose friendly number matches.
func (m *Map) FindFriendly(friendly int64) (Entry, bool) {
	for _, e := range m.Snapshot() {
		if e.ID.Friendly == friendly {
			return e, true
		}
	}
	return Entry{}, false
}

// UpdateFriendly applies fn to the process whose friendly number matches,
// adding it under a fresh ID when absent. Lookup and store happen under one
// write lock, so concurrent first updates create a single entry.
func (m *Map) UpdateFriendly(friendly int64, fn func(*Status)) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id jobid.ID
	found := false
	for pid := range m.processes {
		if pid.Friendly == friendly && (!found || pid.Compare(id) < 0) {
			id, found = pid, true
		}
	}
	if !found {
		id = jobid.New(friendly)
	}
	s := m.processes[id]
	fn(&s)
	m.processes[id] = s
	return Entry{ID: id, Status: s}
}

// Equal reports whether both maps hold the same processes with the same
// statuses. Two nil or empty maps are equal.
func (m *Map) Equal(other *Map) bool {
	a, b := m.Snapshot(), other.Snapshot()
	return slices.Equal(a, b)
}

// Hash returns a hash consistent with Equal. It does not depend on
// insertion order.
func (m *Map) Hash() uint64 {
	var h uint64
	for _, e := range m.Snapshot() {
		h += hashEntry(e)
	}
	return h
}

func hashEntry(e Entry) uint64 {
	buf := make([]byte, 0, 96)
	buf = append(buf, e.ID.Unique[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.ID.Friendly))
	s := e.Status
	buf = append(buf, boolByte(s.Alive), boolByte(s.Ready), byte(s.Failure), boolByte(s.Deallocated))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Sample.SwapBytes))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Sample.PageIns))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Sample.MemoryBytes))
	for _, str := range []string{s.Node, s.PID, s.LogPath} {
		buf = append(buf, str...)
		buf = append(buf, 0)
	}
	return xxhash.Sum64(buf)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
