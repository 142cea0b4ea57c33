package api

import (
	"net/http"

	"jobcore/internal/health"
	"jobcore/internal/job"
	"jobcore/internal/monitor"
	"jobcore/internal/observability"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	JobService    *job.Service
	Tracker       *monitor.Tracker
	Metrics       *observability.Metrics
	HealthChecker *health.Checker
	CancelPolicy  *CancelPolicy
	APIKey        string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.JobService, cfg.Tracker, cfg.Metrics, cfg.HealthChecker, cfg.CancelPolicy)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Cancel requests authenticate by caller signature, not API key
	mux.HandleFunc("POST /or", handler.Cancel)

	// Job endpoints - auth required
	authMiddleware := AuthMiddleware(cfg.APIKey)
	mux.Handle("POST /v1/jobs", authMiddleware(http.HandlerFunc(handler.CreateJob)))
	mux.Handle("GET /v1/jobs", authMiddleware(http.HandlerFunc(handler.ListJobs)))
	mux.Handle("GET /v1/jobs/{jobId}", authMiddleware(http.HandlerFunc(handler.GetJob)))
	mux.Handle("PUT /v1/jobs/{jobId}/processes/{processId}", authMiddleware(http.HandlerFunc(handler.UpdateProcess)))
	mux.Handle("POST /v1/workitems/id", authMiddleware(http.HandlerFunc(handler.WorkItemID)))

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	h = CORSMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RecoveryMiddleware()(h)

	return h
}
