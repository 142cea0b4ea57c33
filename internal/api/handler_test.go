package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcore/internal/health"
	"jobcore/internal/job"
	"jobcore/internal/monitor"
	"jobcore/internal/workitem"
	"jobcore/pkg/jobid"
)

type testEnv struct {
	svc     *job.Service
	tracker *monitor.Tracker
	handler *Handler
	router  http.Handler
}

func newTestEnv(policy *CancelPolicy) *testEnv {
	tracker := monitor.NewTracker()
	svc := job.NewService(job.NewRegistry(), jobid.NewGenerator(1), nil, monitor.NewPublisher(nil, tracker, "", ""))
	checker := health.NewChecker()
	return &testEnv{
		svc:     svc,
		tracker: tracker,
		handler: NewHandler(svc, tracker, nil, checker, policy),
		router: NewRouter(RouterConfig{
			JobService:    svc,
			Tracker:       tracker,
			HealthChecker: checker,
			CancelPolicy:  policy,
		}),
	}
}

func (e *testEnv) admit(t *testing.T, kind, user string) *job.Job {
	t.Helper()
	j, err := e.svc.Admit(context.Background(), &job.AdmitRequest{Kind: kind, User: user})
	require.NoError(t, err)
	return j
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&m))
	return m
}

func TestHandler_Livez(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)

	w := env.do(http.MethodGet, "/livez", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var response health.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, health.StatusHealthy, response.Status)
}

func TestHandler_Readyz(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		critical bool
		want     int
		status   health.Status
	}{
		{"degraded is still ready", false, http.StatusOK, health.StatusDegraded},
		{"critical failure", true, http.StatusServiceUnavailable, health.StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			checker := health.NewChecker()
			checker.Register("dep", tt.critical, func(context.Context) error { return errors.New("down") })
			handler := &Handler{health: checker}

			w := httptest.NewRecorder()
			handler.Readyz(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.want, w.Code)

			var response health.Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.status, response.Status)
		})
	}
}

func TestHandler_CreateJob(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)

	w := env.do(http.MethodPost, "/v1/jobs", `{"kind": "service", "user": "alice", "description": "uima-as"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeMap(t, w)
	assert.Equal(t, "1", resp["id"])
	assert.Equal(t, "service", resp["kind"])
	assert.Equal(t, "Undefined", resp["state"])
	assert.Equal(t, "alice", resp["user"])

	mon := resp["monitor"].(map[string]any)
	assert.Equal(t, "0", mon["code"])
	assert.Equal(t, []any{"Undefined"}, mon["stateSequence"])
}

func TestHandler_CreateJob_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "invalid json"},
		{"empty body", ""},
		{"malformed json", `{"kind": "job", "user": alice}`},
		{"missing kind", `{"user": "alice"}`},
		{"unknown kind", `{"kind": "batch", "user": "alice"}`},
		{"missing user", `{"kind": "job"}`},
		{"negative limit", `{"kind": "job", "user": "alice", "failureLimit": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			env.handler.CreateJob(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decodeMap(t, w)["error"])
		})
	}
}

func TestHandler_GetJob(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)
	j := env.admit(t, "job", "alice")
	require.NoError(t, env.svc.Advance(context.Background(), j.ID().String(), job.StateWaitingForDriver))

	w := env.do(http.MethodGet, "/v1/jobs/"+j.ID().String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeMap(t, w)
	assert.Equal(t, "WaitingForDriver", resp["state"])
	mon := resp["monitor"].(map[string]any)
	assert.Equal(t, []any{"Undefined", "WaitingForDriver"}, mon["stateSequence"])
}

func TestHandler_GetJob_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/v1/jobs/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/v1/jobs/abc", "").Code)

	w := httptest.NewRecorder()
	env.handler.GetJob(w, httptest.NewRequest(http.MethodGet, "/v1/jobs/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListJobs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)
	env.admit(t, "job", "alice")
	env.admit(t, "service", "bob")

	w := env.do(http.MethodGet, "/v1/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)

	jobs := decodeMap(t, w)["jobs"].([]any)
	require.Len(t, jobs, 2)
	assert.Equal(t, "1", jobs[0].(map[string]any)["id"])
	assert.Equal(t, "2", jobs[1].(map[string]any)["id"])
}

func TestHandler_UpdateProcess(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)
	j := env.admit(t, "service", "alice")
	path := fmt.Sprintf("/v1/jobs/%s/processes/3", j.ID())

	w := env.do(http.MethodPut, path, `{"alive": true, "node": "n1", "pid": "4242", "sample": {"swapBytes": 1073741824}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeMap(t, w)
	assert.Equal(t, "3", resp["id"])
	status := resp["status"].(map[string]any)
	assert.Equal(t, true, status["alive"])
	assert.Equal(t, "none", status["failure"])
	assert.InDelta(t, 1.0, j.TotalSwapGB(), 1e-9)

	w = env.do(http.MethodGet, "/v1/jobs/"+j.ID().String(), "")
	mon := decodeMap(t, w)["monitor"].(map[string]any)
	assert.Equal(t, "1", mon["procs"])
	assert.Equal(t, []any{"n1:4242"}, mon["remotePids"])
}

func TestHandler_UpdateProcess_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)
	j := env.admit(t, "service", "alice")
	base := fmt.Sprintf("/v1/jobs/%s/processes/", j.ID())

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown job", "/v1/jobs/42/processes/1", `{"alive": true}`, http.StatusNotFound},
		{"bad process id", base + "x", `{"alive": true}`, http.StatusBadRequest},
		{"bad failure", base + "1", `{"failure": "sometimes"}`, http.StatusBadRequest},
		{"service has no driver", base + "1", `{"pool": "driver", "alive": true}`, http.StatusBadRequest},
		{"invalid json", base + "1", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, env.do(http.MethodPut, tt.path, tt.body).Code)
		})
	}
}

func TestHandler_WorkItemID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(nil)

	body := fmt.Sprintf(`{"text": "doc", "schema": {%q: [%q]}, "annotations": [{"type": %q, "features": {%q: "hdfs://in/part-7"}}]}`,
		workitem.WorkitemType, workitem.InputspecFeature, workitem.WorkitemType, workitem.InputspecFeature)
	w := env.do(http.MethodPost, "/v1/workitems/id", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "hdfs://in/part-7", decodeMap(t, w)["id"])

	w = env.do(http.MethodPost, "/v1/workitems/id", `{"text": "plain document"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "plain document", decodeMap(t, w)["id"])

	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/v1/workitems/id", `{"text": ""}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/workitems/id", `{"txt": "x"}`).Code)
}

func TestRouter_Auth(t *testing.T) {
	t.Parallel()
	router := NewRouter(RouterConfig{
		JobService:    job.NewService(job.NewRegistry(), jobid.NewGenerator(1), nil, nil),
		HealthChecker: health.NewChecker(),
		APIKey:        "k3y",
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	req.Header.Set("Authorization", "Bearer k3y")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/livez", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
