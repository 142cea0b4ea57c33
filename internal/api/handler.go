// Package api provides the HTTP handlers and routing for the orchestrator.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"jobcore/internal/apperrors"
	"jobcore/internal/health"
	"jobcore/internal/job"
	"jobcore/internal/monitor"
	"jobcore/internal/observability"
	"jobcore/internal/process"
	"jobcore/internal/workitem"
)

// maxRequestBodySize limits request body to 1MB to prevent memory exhaustion
const maxRequestBodySize = 1 << 20 // 1 MB

// Handler contains HTTP handlers for the orchestrator API.
type Handler struct {
	svc     *job.Service
	tracker *monitor.Tracker
	metrics *observability.Metrics
	health  *health.Checker
	cancel  *CancelPolicy
}

// NewHandler creates a new API handler. tracker and policy may be nil.
func NewHandler(svc *job.Service, tracker *monitor.Tracker, metrics *observability.Metrics, healthChecker *health.Checker, policy *CancelPolicy) *Handler {
	if tracker == nil {
		tracker = monitor.NewTracker()
	}
	if policy == nil {
		policy = NewCancelPolicy(false, "", nil)
	}
	return &Handler{
		svc:     svc,
		tracker: tracker,
		metrics: metrics,
		health:  healthChecker,
		cancel:  policy,
	}
}

// JobResponse describes one job together with its monitor record.
type JobResponse struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	State        job.State         `json:"state"`
	User         string            `json:"user"`
	Description  string            `json:"description,omitempty"`
	LogDirectory string            `json:"logDirectory,omitempty"`
	Completion   job.Completion    `json:"completion"`
	Failures     job.FailureReport `json:"failures"`
	SwapGB       float64           `json:"swapGb"`
	MaxSwapGB    float64           `json:"maxSwapGb"`
	PageIns      int64             `json:"pageIns"`
	Monitor      monitor.Info      `json:"monitor"`
}

func (h *Handler) jobResponse(j *job.Job) JobResponse {
	info := j.StandardInfo()
	return JobResponse{
		ID:           j.ID().String(),
		Kind:         j.Kind().String(),
		State:        j.State(),
		User:         info.User,
		Description:  info.Description,
		LogDirectory: j.LogDirectory(),
		Completion:   j.Completion(),
		Failures:     j.FailureReport(),
		SwapGB:       j.TotalSwapGB(),
		MaxSwapGB:    j.MaxSwapGB(),
		PageIns:      j.TotalPageIns(),
		Monitor:      monitor.FromJob(j, h.tracker.Sequence(j.ID())),
	}
}

// CreateJob handles POST /v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req job.AdmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	j, err := h.svc.Admit(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.jobResponse(j))
}

// ListJobs handles GET /v1/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.svc.List()
	resp := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, h.jobResponse(j))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"jobs": resp})
}

// GetJob handles GET /v1/jobs/{jobId}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	if jobID == "" {
		h.writeError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	j, err := h.svc.Get(jobID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.jobResponse(j))
}

// processResponse is the state of one process after an update.
type processResponse struct {
	ID     string         `json:"id"`
	Status process.Status `json:"status"`
}

// UpdateProcess handles PUT /v1/jobs/{jobId}/processes/{processId}
func (h *Handler) UpdateProcess(w http.ResponseWriter, r *http.Request) {
	jobID, processID := r.PathValue("jobId"), r.PathValue("processId")
	if jobID == "" || processID == "" {
		h.writeError(w, http.StatusBadRequest, "Job ID and process ID are required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var upd job.ProcessUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	status, err := h.svc.UpdateProcess(r.Context(), jobID, processID, &upd)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, processResponse{ID: processID, Status: status})
}

// WorkItemID handles POST /v1/workitems/id
func (h *Handler) WorkItemID(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	doc, err := workitem.Decode(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid work item: "+err.Error())
		return
	}
	id, ok := workitem.ID(doc)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "Work item has no identity")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Livez handles GET /livez - liveness probe.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 503 only when a critical check fails; degraded is still ready.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsReady() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, "application/json", status, data)
}

func writeJSON(w http.ResponseWriter, contentType string, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleError handles errors from service layer with appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		slog.Error("Internal error", "error", err, "path", r.URL.Path)
	} else {
		slog.Warn("Client error", "error", err, "path", r.URL.Path, "status", status)
	}
	h.writeError(w, status, err.Error())
}
