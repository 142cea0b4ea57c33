package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobcore/internal/apperrors"
	"jobcore/internal/observability"
	"jobcore/internal/process"
	"jobcore/pkg/jobid"
)

const (
	maxUserLength        = 64
	maxDescriptionLength = 1024
)

// Service applies lifecycle events to the admitted jobs.
//
// It is the facade used by the inbound event handlers (allocation,
// heartbeat, completion, cancel). The entities themselves hold all state.
type Service struct {
	registry *Registry
	ids      *jobid.Generator
	metrics  *observability.Metrics
	notifier Notifier
}

// NewService creates a new job service. metrics and notifier may be nil.
func NewService(registry *Registry, ids *jobid.Generator, metrics *observability.Metrics, notifier Notifier) *Service {
	return &Service{
		registry: registry,
		ids:      ids,
		metrics:  metrics,
		notifier: notifier,
	}
}

// Admit validates a request and registers a new job or service in the
// Undefined state. Jobs get a driver pool; services do not.
func (s *Service) Admit(ctx context.Context, req *AdmitRequest) (*Job, error) {
	kind, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	j := New(s.ids.Next(), kind, StandardInfo{
		User:         req.User,
		SubmitterPID: req.SubmitterPID,
		Description:  req.Description,
		LogDirectory: req.LogDirectory,
		SubmitTime:   time.Now().UTC(),
	})
	if kind == KindJob {
		j.SetDriver(NewDriver())
	}
	if req.Broker != "" || req.Queue != "" {
		j.SetEndpoint(Endpoint{Broker: req.Broker, Queue: req.Queue})
	}
	if req.InitFailureLimit != nil {
		j.SetProcessInitFailureLimit(*req.InitFailureLimit)
	}
	if req.InitFailureCap != nil {
		j.SetProcessInitFailureCap(*req.InitFailureCap)
	}
	if req.FailureLimit != nil {
		j.SetProcessFailureLimit(*req.FailureLimit)
	}

	if err := s.registry.Add(j); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordJobAdmitted(ctx, kind.String())
	}
	slog.Info("Job admitted", "jobId", j.ID().String(), "kind", kind.String(), "user", req.User)
	s.notify(ctx, j)
	return j, nil
}

// Get returns a job by its display form.
func (s *Service) Get(display string) (*Job, error) {
	friendly, err := jobid.ParseFriendly(display)
	if err != nil {
		return nil, apperrors.Validation("id", err.Error())
	}
	j, ok := s.registry.FindFriendly(friendly)
	if !ok {
		return nil, apperrors.NotFound("job", display)
	}
	return j, nil
}

// List returns all admitted jobs ordered by ID.
func (s *Service) List() []*Job {
	return s.registry.List()
}

// SetState stores a state without checking the transition. Used by
// recovery paths.
func (s *Service) SetState(ctx context.Context, display string, to State) error {
	j, err := s.Get(display)
	if err != nil {
		return err
	}
	from := j.State()
	j.SetState(to)
	slog.Info("Job state set", "jobId", display, "from", from.String(), "to", to.String())
	s.notify(ctx, j)
	return nil
}

// Advance moves a job forward, rejecting transitions outside the table.
func (s *Service) Advance(ctx context.Context, display string, to State) error {
	j, err := s.Get(display)
	if err != nil {
		return err
	}
	from, err := j.Advance(to)
	if err != nil {
		slog.Warn("Job state change rejected", "jobId", display, "from", from.String(), "to", to.String())
		return err
	}
	slog.Info("Job state advanced", "jobId", display, "from", from.String(), "to", to.String())
	s.notify(ctx, j)
	return nil
}

// UpdateProcess applies a heartbeat to one process of a job. A process that
// is not yet known is added with the given friendly number.
func (s *Service) UpdateProcess(ctx context.Context, display, processID string, upd *ProcessUpdate) (process.Status, error) {
	j, err := s.Get(display)
	if err != nil {
		return process.Status{}, err
	}
	friendly, err := jobid.ParseFriendly(processID)
	if err != nil {
		return process.Status{}, apperrors.Validation("processId", err.Error())
	}
	failure, err := parseFailure(upd.Failure)
	if err != nil {
		return process.Status{}, err
	}

	var pm *process.Map
	switch upd.Pool {
	case "", PoolPrimary:
		pm = j.Processes()
	case PoolDriver:
		pm = j.Driver().Processes()
		if pm == nil {
			return process.Status{}, apperrors.Validation("pool", fmt.Sprintf("%s %s has no driver", j.Kind(), display))
		}
	default:
		return process.Status{}, apperrors.Validation("pool", fmt.Sprintf("unknown pool %q", upd.Pool))
	}

	status := pm.UpdateFriendly(friendly, func(st *process.Status) {
		applyUpdate(st, upd, failure)
	}).Status

	slog.Debug("Process updated", "jobId", display, "processId", processID, "pool", string(upd.Pool),
		"alive", status.Alive, "ready", status.Ready, "failure", status.Failure.String())
	s.notify(ctx, j)
	return status, nil
}

// UpdateDriverProcess applies a heartbeat to one process of a job's driver.
func (s *Service) UpdateDriverProcess(ctx context.Context, display, processID string, upd ProcessUpdate) (process.Status, error) {
	upd.Pool = PoolDriver
	return s.UpdateProcess(ctx, display, processID, &upd)
}

// SetWorkItems records the driver's work item counts.
func (s *Service) SetWorkItems(ctx context.Context, display string, w WorkItems) error {
	j, err := s.Get(display)
	if err != nil {
		return err
	}
	j.SetWorkItems(w)
	s.notify(ctx, j)
	return nil
}

// Complete records the outcome and moves the job to Completing unless it is
// already finishing.
func (s *Service) Complete(ctx context.Context, display string, t CompletionType, r Rationale) error {
	j, err := s.Get(display)
	if err != nil {
		return err
	}
	s.complete(ctx, j, t, r)
	return nil
}

// CancelService cancels a running service on behalf of a user and returns
// the reply message for the caller.
func (s *Service) CancelService(ctx context.Context, display, user string, administrator bool) (string, error) {
	j, err := s.Get(display)
	if err != nil {
		return "", err
	}
	logger := slog.With("jobId", display, "user", user, "administrator", administrator)

	if j.Driver() != nil {
		logger.Warn("Cancel rejected, not a service")
		return "", apperrors.Validation("id", fmt.Sprintf("%s is a job, not a service", display))
	}
	if j.IsFinished() {
		return "already " + stateVerb(j.State()), nil
	}

	r := Rationalef("canceled by %s", user)
	if administrator {
		r = Rationalef("canceled by administrator %s", user)
	}
	s.complete(ctx, j, CompletionCanceled, r)

	if s.metrics != nil {
		s.metrics.RecordJobCanceled(ctx, j.Kind().String())
	}
	logger.Info("Service canceled")
	return "canceled", nil
}

// RunMaintenance removes expired completed jobs every interval until ctx is
// canceled.
func (s *Service) RunMaintenance(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now(), retention)
		}
	}
}

// Sweep removes jobs that completed more than retention before now and
// returns how many were removed. Their final snapshot has been published by
// the time they reach Completed.
func (s *Service) Sweep(now time.Time, retention time.Duration) int {
	logger := slog.With("component", "maintenance")

	removed := 0
	for _, j := range s.registry.List() {
		at := j.CompletedAt()
		if at.IsZero() || now.Sub(at) <= retention {
			continue
		}
		if _, ok := s.registry.Remove(j.ID()); ok {
			removed++
			logger.Debug("Job removed", "jobId", j.ID().String(), "completedAt", at)
		}
	}
	if removed > 0 {
		logger.Info("Maintenance complete", "removed", removed, "remaining", s.registry.Len())
	}
	return removed
}

func (s *Service) complete(ctx context.Context, j *Job, t CompletionType, r Rationale) {
	applied := j.SetCompletion(t, r)
	if !j.IsFinished() {
		j.SetState(StateCompleting)
	}
	if applied && s.metrics != nil {
		s.metrics.RecordJobCompleted(ctx, j.Kind().String(), t.String())
	}
	slog.Info("Job completing", "jobId", j.ID().String(), "completion", j.CompletionType().String(),
		"rationale", j.CompletionRationale().Text())
	s.notify(ctx, j)
}

func (s *Service) notify(ctx context.Context, j *Job) {
	if s.metrics != nil {
		sum := j.Processes().Summarize()
		report := j.FailureReport()
		s.metrics.RecordJobSample(ctx, observability.JobSample{
			JobID:          j.ID().String(),
			Kind:           j.Kind().String(),
			AliveProcesses: int64(sum.Alive),
			SwapGB:         j.TotalSwapGB(),
			PageIns:        j.TotalPageIns(),
			InitFailures:   report.InitFailures,
			Failures:       report.Failures,
		})
	}
	if s.notifier != nil {
		s.notifier.Notify(j)
	}
}

// validate checks a request. Does not modify the request.
func (s *Service) validate(req *AdmitRequest) (Kind, error) {
	var kind Kind
	switch req.Kind {
	case "job":
		kind = KindJob
	case "service":
		kind = KindService
	case "":
		return kind, apperrors.Validation("kind", "kind is required")
	default:
		return kind, apperrors.Validation("kind", fmt.Sprintf("kind must be job or service, got %q", req.Kind))
	}

	if req.User == "" {
		return kind, apperrors.Validation("user", "user is required")
	}
	if len(req.User) > maxUserLength {
		return kind, apperrors.Validation("user", fmt.Sprintf("user exceeds maximum length of %d", maxUserLength))
	}
	if len(req.Description) > maxDescriptionLength {
		return kind, apperrors.Validation("description", fmt.Sprintf("description exceeds maximum length of %d", maxDescriptionLength))
	}
	for field, v := range map[string]*int64{
		"initFailureLimit": req.InitFailureLimit,
		"initFailureCap":   req.InitFailureCap,
		"failureLimit":     req.FailureLimit,
	} {
		if v != nil && *v < 0 {
			return kind, apperrors.Validation(field, field+" must not be negative")
		}
	}
	return kind, nil
}

func applyUpdate(st *process.Status, upd *ProcessUpdate, failure *process.Failure) {
	if upd.Alive != nil {
		st.Alive = *upd.Alive
	}
	if upd.Ready != nil {
		st.Ready = *upd.Ready
	}
	if failure != nil {
		st.Failure = *failure
	}
	if upd.Deallocated != nil {
		st.Deallocated = *upd.Deallocated
	}
	if upd.Sample != nil {
		st.Sample = *upd.Sample
	}
	if upd.Node != "" {
		st.Node = upd.Node
	}
	if upd.PID != "" {
		st.PID = upd.PID
	}
	if upd.LogPath != "" {
		st.LogPath = upd.LogPath
	}
}

func parseFailure(s *string) (*process.Failure, error) {
	if s == nil {
		return nil, nil
	}
	for _, f := range []process.Failure{process.FailureNone, process.FailureInit, process.FailureRuntime} {
		if f.String() == *s {
			return &f, nil
		}
	}
	return nil, apperrors.Validation("failure", fmt.Sprintf("failure must be none, init or runtime, got %q", *s))
}

func stateVerb(s State) string {
	if s == StateCompleted {
		return "completed"
	}
	return "completing"
}
