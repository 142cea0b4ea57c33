// Package monitor builds the flat JSON status record read by the operator UI
// and publishes it after every job mutation.
package monitor

import (
	"encoding/json"
	"fmt"
	"strconv"

	"jobcore/internal/job"
	"jobcore/internal/process"
)

// Info is the status record of one job. Counts are strings.
type Info struct {
	Code          string   `json:"code"`
	StateSequence []string `json:"stateSequence"`
	Rationale     string   `json:"rationale"`
	Total         string   `json:"total"`
	Done          string   `json:"done"`
	Error         string   `json:"error"`
	Retry         string   `json:"retry"`
	Lost          string   `json:"lost"`
	Procs         string   `json:"procs"`
	RemotePids    []string `json:"remotePids"`
	ErrorLogs     []string `json:"errorLogs"`
}

// NewInfo returns a record with zero counts and empty lists.
func NewInfo() Info {
	return Info{
		Code:          "0",
		StateSequence: []string{},
		Total:         "0",
		Done:          "0",
		Error:         "0",
		Retry:         "0",
		Lost:          "0",
		Procs:         "0",
		RemotePids:    []string{},
		ErrorLogs:     []string{},
	}
}

// Code returns the record code for a completion: 0 while running or after a
// normal end, otherwise the numeric completion type.
func Code(t job.CompletionType) string {
	if t == job.CompletionUndefined || t == job.CompletionEndOfJob {
		return "0"
	}
	return strconv.Itoa(int(t))
}

// FromJob builds a record from the current state of j. sequence is the list
// of states traversed so far, usually from a Tracker.
func FromJob(j *job.Job, sequence []string) Info {
	info := NewInfo()
	if sequence != nil {
		info.StateSequence = sequence
	}

	c := j.Completion()
	info.Code = Code(c.Type)
	info.Rationale = c.Rationale.Text()

	w := j.WorkItems()
	info.Total = strconv.FormatInt(w.Total, 10)
	info.Done = strconv.FormatInt(w.Done, 10)
	info.Error = strconv.FormatInt(w.Error, 10)
	info.Retry = strconv.FormatInt(w.Retry, 10)
	info.Lost = strconv.FormatInt(w.Lost, 10)
	info.Procs = strconv.FormatInt(j.AliveProcessCount(), 10)

	for _, e := range j.Processes().Snapshot() {
		if e.Status.Alive {
			info.RemotePids = append(info.RemotePids, remotePid(e))
		}
		if e.Status.Failed() && e.Status.LogPath != "" {
			info.ErrorLogs = append(info.ErrorLogs, e.Status.LogPath)
		}
	}
	return info
}

// remotePid formats a process as node:pid, falling back to its friendly id.
func remotePid(e process.Entry) string {
	pid := e.Status.PID
	if pid == "" {
		pid = e.ID.String()
	}
	if e.Status.Node == "" {
		return pid
	}
	return fmt.Sprintf("%s:%s", e.Status.Node, pid)
}

// Data returns the record as a CloudEvent data map.
func (i Info) Data() (map[string]any, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
