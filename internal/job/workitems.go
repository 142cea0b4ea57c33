package job

// WorkItems counts the work items a driver has handed out, as last reported
// by the driver.
type WorkItems struct {
	Total int64 `json:"total"`
	Done  int64 `json:"done"`
	Error int64 `json:"error"`
	Retry int64 `json:"retry"`
	Lost  int64 `json:"lost"`
}

// WorkItems returns the last reported work item counts.
func (j *Job) WorkItems() WorkItems {
	if w := j.workItems.Load(); w != nil {
		return *w
	}
	return WorkItems{}
}

// SetWorkItems replaces the work item counts.
func (j *Job) SetWorkItems(w WorkItems) { j.workItems.Store(&w) }
