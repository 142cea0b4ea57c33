// Package process tracks the worker processes assigned to a job or service.
package process

// Failure classifies how a process failed, if it did.
type Failure int

const (
	FailureNone    Failure = iota // not failed
	FailureInit                   // failed before finishing initialization
	FailureRuntime                // failed after initialization
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureInit:
		return "init"
	case FailureRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// MarshalText encodes the failure by name.
func (f Failure) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Sample is a point-in-time resource reading for one process.
// Each heartbeat replaces the previous sample.
type Sample struct {
	SwapBytes   int64 `json:"swapBytes"`
	PageIns     int64 `json:"pageIns"`
	MemoryBytes int64 `json:"memoryBytes"`
}

// Status is the last known state of one process.
type Status struct {
	Alive   bool    `json:"alive"`
	Ready   bool    `json:"ready"` // initialized and serving
	Failure Failure `json:"failure"`
	// Deallocated is set when the orchestrator stopped the process itself.
	Deallocated bool   `json:"deallocated"`
	Sample      Sample `json:"sample"`
	Node        string `json:"node,omitempty"`
	PID         string `json:"pid,omitempty"`
	LogPath     string `json:"logPath,omitempty"`
}

// Failed reports whether the process has any failure classification.
func (s Status) Failed() bool {
	return s.Failure != FailureNone
}
