package job

import "jobcore/internal/process"

// AdmitRequest describes a job or service to admit.
type AdmitRequest struct {
	Kind         string `json:"kind"` // "job" or "service"
	User         string `json:"user"`
	Description  string `json:"description,omitempty"`
	LogDirectory string `json:"logDirectory,omitempty"`
	SubmitterPID string `json:"submitterPid,omitempty"`
	Broker       string `json:"broker,omitempty"`
	Queue        string `json:"queue,omitempty"`

	// Optional overrides of the failure thresholds.
	InitFailureLimit *int64 `json:"initFailureLimit,omitempty"`
	InitFailureCap   *int64 `json:"initFailureCap,omitempty"`
	FailureLimit     *int64 `json:"failureLimit,omitempty"`
}

// Pool selects which process map an update applies to.
type Pool string

const (
	PoolPrimary Pool = "primary"
	PoolDriver  Pool = "driver"
)

// ProcessUpdate is a heartbeat for one process. Nil fields keep their
// previous value; a present Sample replaces the previous sample.
type ProcessUpdate struct {
	Pool        Pool            `json:"pool,omitempty"`
	Alive       *bool           `json:"alive,omitempty"`
	Ready       *bool           `json:"ready,omitempty"`
	Failure     *string         `json:"failure,omitempty"` // "none", "init" or "runtime"
	Deallocated *bool           `json:"deallocated,omitempty"`
	Sample      *process.Sample `json:"sample,omitempty"`
	Node        string          `json:"node,omitempty"`
	PID         string          `json:"pid,omitempty"`
	LogPath     string          `json:"logPath,omitempty"`
}

// Notifier is told about every mutation so snapshots can be published.
type Notifier interface {
	Notify(j *Job)
}
