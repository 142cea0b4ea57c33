package job

import (
	"fmt"
	"slices"
	"sync"

	"jobcore/internal/apperrors"
	"jobcore/pkg/jobid"
)

// Registry holds the admitted jobs and services with thread-safe access.
type Registry struct {
	mu   sync.RWMutex
	jobs map[jobid.ID]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[jobid.ID]*Job),
	}
}

// Add registers a job. Returns a conflict error if the ID is taken.
func (r *Registry) Add(j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[j.ID()]; exists {
		return apperrors.Conflict("job", fmt.Sprintf("job %s already exists", j.ID()), nil)
	}
	r.jobs[j.ID()] = j
	return nil
}

// Get returns the job with the given ID.
func (r *Registry) Get(id jobid.ID) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

// FindFriendly returns the job whose friendly number matches.
func (r *Registry) FindFriendly(friendly int64) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, j := range r.jobs {
		if id.Friendly == friendly {
			return j, true
		}
	}
	return nil, false
}

// Remove drops a job. The service removes completed jobs once their
// retention has elapsed.
func (r *Registry) Remove(id jobid.ID) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if ok {
		delete(r.jobs, id)
	}
	return j, ok
}

// List returns all jobs ordered by ID.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Job) int { return a.ID().Compare(b.ID()) })
	return jobs
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
