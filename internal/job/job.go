// Package job models the lifecycle of a job or service: its state machine,
// worker processes, failure accounting, resource aggregates and completion.
//
// A Job is a passive in-memory container. It is mutated concurrently by event
// handlers and read concurrently by publishers; it never calls outward.
// Scalar fields are atomic. Queries over processes work on a snapshot of the
// process map. There is no consistency guarantee across two separate calls.
package job

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"jobcore/internal/process"
	"jobcore/pkg/jobid"
)

// GB is the number of bytes in a gigabyte for swap reporting.
const GB = 1 << 30

// Kind distinguishes batch jobs from long-running services.
type Kind int

const (
	KindJob Kind = iota
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// StandardInfo is the submission metadata of a job.
type StandardInfo struct {
	User         string    `json:"user"`
	SubmitterPID string    `json:"submitterPid,omitempty"`
	Description  string    `json:"description,omitempty"`
	LogDirectory string    `json:"logDirectory,omitempty"`
	SubmitTime   time.Time `json:"submitTime"`
}

func (s StandardInfo) equal(o StandardInfo) bool {
	return s.User == o.User &&
		s.SubmitterPID == o.SubmitterPID &&
		s.Description == o.Description &&
		s.LogDirectory == o.LogDirectory &&
		s.SubmitTime.Equal(o.SubmitTime)
}

// Driver is the secondary process pool that feeds work items to a job's
// primary processes.
type Driver struct {
	processes *process.Map
}

// NewDriver creates a driver with an empty process map.
func NewDriver() *Driver {
	return &Driver{processes: process.NewMap()}
}

// Processes returns the driver's process map. Nil for a nil driver.
func (d *Driver) Processes() *process.Map {
	if d == nil {
		return nil
	}
	return d.processes
}

// Endpoint is where a job's driver publishes work items.
type Endpoint struct {
	Broker string `json:"broker,omitempty"`
	Queue  string `json:"queue,omitempty"`
}

// Job is a job or service entity.
type Job struct {
	id   jobid.ID
	kind Kind
	info StandardInfo

	state       atomic.Int32
	completedAt atomic.Int64 // unix nanos of the first store of Completed
	completion  atomic.Pointer[Completion]
	driver      atomic.Pointer[Driver]
	endpoint    atomic.Pointer[Endpoint]
	workItems   atomic.Pointer[WorkItems]
	failures    *failureThresholds
	processes   *process.Map
}

// New creates a job in the Undefined state with an empty process map and no
// driver.
func New(id jobid.ID, kind Kind, info StandardInfo) *Job {
	return &Job{
		id:        id,
		kind:      kind,
		info:      info,
		failures:  newFailureThresholds(),
		processes: process.NewMap(),
	}
}

func (j *Job) ID() jobid.ID { return j.id }

func (j *Job) Kind() Kind { return j.kind }

func (j *Job) StandardInfo() StandardInfo { return j.info }

// Processes returns the primary process map.
func (j *Job) Processes() *process.Map { return j.processes }

// Driver returns the driver pool, nil for service-shaped entities.
func (j *Job) Driver() *Driver { return j.driver.Load() }

func (j *Job) SetDriver(d *Driver) { j.driver.Store(d) }

func (j *Job) Endpoint() Endpoint {
	if e := j.endpoint.Load(); e != nil {
		return *e
	}
	return Endpoint{}
}

func (j *Job) SetEndpoint(e Endpoint) { j.endpoint.Store(&e) }

// State returns the last stored state.
func (j *Job) State() State { return State(j.state.Load()) }

// SetState stores the state without checking the transition. Recovery paths
// may legitimately jump states.
func (j *Job) SetState(s State) {
	j.state.Store(int32(s))
	j.markCompleted(s)
}

func (j *Job) markCompleted(s State) {
	if s == StateCompleted {
		j.completedAt.CompareAndSwap(0, time.Now().UnixNano())
	}
}

// CompletedAt returns when the job first reached Completed, zero before.
func (j *Job) CompletedAt() time.Time {
	n := j.completedAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Advance moves to the given state only if ValidTransition allows it.
// Returns the previous state.
func (j *Job) Advance(to State) (State, error) {
	for {
		from := j.State()
		if !ValidTransition(from, to) {
			return from, invalidTransition(j.id, from, to)
		}
		if j.state.CompareAndSwap(int32(from), int32(to)) {
			j.markCompleted(to)
			return from, nil
		}
	}
}

func (j *Job) IsActive() bool      { return j.State().IsActive() }
func (j *Job) IsSchedulable() bool { return j.State().IsSchedulable() }
func (j *Job) IsInitialized() bool { return j.State().IsInitialized() }
func (j *Job) IsRunnable() bool    { return j.State().IsRunnable() }
func (j *Job) IsCompleting() bool  { return j.State().IsCompleting() }
func (j *Job) IsCompleted() bool   { return j.State().IsCompleted() }
func (j *Job) IsFinished() bool    { return j.State().IsFinished() }
func (j *Job) IsOperational() bool { return j.State().IsOperational() }

// SetCompletion records the terminal outcome. A CompletionUndefined value
// never replaces an outcome that is already set; in that case the call is a
// no-op and returns false.
func (j *Job) SetCompletion(t CompletionType, r Rationale) bool {
	next := &Completion{Type: t, Rationale: r}
	for {
		cur := j.completion.Load()
		if t == CompletionUndefined && cur != nil && cur.IsSet() {
			return false
		}
		if j.completion.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Completion returns the completion type and rationale as one value.
func (j *Job) Completion() Completion {
	if c := j.completion.Load(); c != nil {
		return *c
	}
	return Completion{}
}

func (j *Job) CompletionType() CompletionType { return j.Completion().Type }

// CompletionRationale returns the rationale, or the empty rationale if none
// was set.
func (j *Job) CompletionRationale() Rationale { return j.Completion().Rationale }

// IsProcessReady reports whether any primary process is ready. It queries a
// deep copy of the process map.
func (j *Job) IsProcessReady() bool {
	return j.processes.DeepCopy().ReadyCount() > 0
}

func (j *Job) AliveProcessCount() int64 { return int64(j.processes.AliveCount()) }

func (j *Job) HasAliveProcess() bool { return j.AliveProcessCount() > 0 }

// FailedUnexpectedProcessCount counts primary processes that failed without
// being stopped by the orchestrator.
func (j *Job) FailedUnexpectedProcessCount() int {
	return j.processes.DeepCopy().FailedUnexpectedCount()
}

// TotalPageIns sums page-ins over the primary and driver pools.
func (j *Job) TotalPageIns() int64 {
	total := j.processes.PageIns()
	if d := j.Driver(); d != nil {
		total += d.Processes().PageIns()
	}
	return total
}

// TotalSwapGB sums swap usage over the primary and driver pools. Each pool's
// byte total is converted at this point, never stored converted.
func (j *Job) TotalSwapGB() float64 {
	total := float64(j.processes.SwapBytes()) / GB
	if d := j.Driver(); d != nil {
		total += float64(d.Processes().SwapBytes()) / GB
	}
	return total
}

// MaxSwapGB returns the largest single-process swap usage across the primary
// and driver pools. This is the maximum of the two pool maxima, not their sum.
func (j *Job) MaxSwapGB() float64 {
	m := float64(j.processes.MaxSwapBytes()) / GB
	if d := j.Driver(); d != nil {
		m = max(m, float64(d.Processes().MaxSwapBytes())/GB)
	}
	return m
}

// LogDirectory returns the submitted log directory, or the user's home
// directory when none was given. The result always ends with a separator.
func (j *Job) LogDirectory() string {
	dir := j.info.LogDirectory
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return dir
}

// UserLogsDir is where process logs for this job are written.
func (j *Job) UserLogsDir() string {
	return j.LogDirectory()
}

// Process looks up a primary process by its display form. Malformed or
// unmatched input yields false.
func (j *Job) Process(display string) (process.Status, bool) {
	friendly, err := jobid.ParseFriendly(display)
	if err != nil {
		return process.Status{}, false
	}
	e, ok := j.processes.FindFriendly(friendly)
	return e.Status, ok
}
