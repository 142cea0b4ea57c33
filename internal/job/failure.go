package job

import "sync/atomic"

// Failure threshold defaults.
const (
	DefaultInitFailureLimit = 1
	DefaultFailureLimit     = 2
)

// failureThresholds holds the mutable limits. Each field is independently
// atomic; they are not coordinated with each other or with the counts.
type failureThresholds struct {
	initLimit atomic.Int64
	initCap   atomic.Int64 // 0 means no cap
	limit     atomic.Int64
}

func newFailureThresholds() *failureThresholds {
	f := &failureThresholds{}
	f.initLimit.Store(DefaultInitFailureLimit)
	f.limit.Store(DefaultFailureLimit)
	return f
}

// FailureReport bundles failure counts and thresholds read at one call.
type FailureReport struct {
	InitFailures     int64 `json:"initFailures"`
	InitFailureLimit int64 `json:"initFailureLimit"`
	InitFailureCap   int64 `json:"initFailureCap"`
	Failures         int64 `json:"failures"`
	FailureLimit     int64 `json:"failureLimit"`
}

// InitFailuresExceeded reports whether init failures are above the limit.
func (r FailureReport) InitFailuresExceeded() bool {
	return r.InitFailures > r.InitFailureLimit
}

// FailuresExceeded reports whether runtime failures are above the limit.
func (r FailureReport) FailuresExceeded() bool {
	return r.Failures > r.FailureLimit
}

// ProcessInitFailureLimit returns the number of init failures tolerated.
func (j *Job) ProcessInitFailureLimit() int64 { return j.failures.initLimit.Load() }

func (j *Job) SetProcessInitFailureLimit(n int64) { j.failures.initLimit.Store(n) }

// ProcessInitFailureCap returns the cap on processes failing at init, 0 if unset.
func (j *Job) ProcessInitFailureCap() int64 { return j.failures.initCap.Load() }

func (j *Job) SetProcessInitFailureCap(n int64) { j.failures.initCap.Store(n) }

// ProcessFailureLimit returns the number of runtime failures tolerated.
func (j *Job) ProcessFailureLimit() int64 { return j.failures.limit.Load() }

func (j *Job) SetProcessFailureLimit(n int64) { j.failures.limit.Store(n) }

// ProcessInitFailureCount counts primary processes that failed during
// initialization. Computed from the current process map on every call.
func (j *Job) ProcessInitFailureCount() int64 {
	return int64(j.processes.FailedInitializationCount())
}

// ProcessFailureCount counts primary processes that failed after
// initialization. Computed from the current process map on every call.
func (j *Job) ProcessFailureCount() int64 {
	return int64(j.processes.FailedNotInitializationCount())
}

// FailureReport returns counts and thresholds. The counts come from one
// snapshot of the process map.
func (j *Job) FailureReport() FailureReport {
	sum := j.processes.Summarize()
	return FailureReport{
		InitFailures:     int64(sum.FailedInit),
		InitFailureLimit: j.ProcessInitFailureLimit(),
		InitFailureCap:   j.ProcessInitFailureCap(),
		Failures:         int64(sum.FailedRuntime),
		FailureLimit:     j.ProcessFailureLimit(),
	}
}
