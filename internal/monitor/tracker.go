package monitor

import (
	"slices"
	"sync"

	"jobcore/internal/job"
	"jobcore/pkg/jobid"
)

// Tracker remembers the states each job has passed through, in order.
type Tracker struct {
	mu   sync.Mutex
	seqs map[jobid.ID][]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seqs: make(map[jobid.ID][]string)}
}

// Observe records the job's current state if it differs from the last one
// seen and returns a copy of the sequence.
func (t *Tracker) Observe(j *job.Job) []string {
	name := j.State().String()

	t.mu.Lock()
	defer t.mu.Unlock()
	seq := t.seqs[j.ID()]
	if len(seq) == 0 || seq[len(seq)-1] != name {
		seq = append(seq, name)
		t.seqs[j.ID()] = seq
	}
	return slices.Clone(seq)
}

// Sequence returns a copy of the recorded sequence, nil if none.
func (t *Tracker) Sequence(id jobid.ID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.seqs[id])
}

// Forget drops the sequence of a job.
func (t *Tracker) Forget(id jobid.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seqs, id)
}
