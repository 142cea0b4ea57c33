package monitor

import (
	"errors"
	"log/slog"

	"jobcore/internal/dispatcher"
	"jobcore/internal/job"
	"jobcore/pkg/cloudevent"
)

// Event types and source of published records.
const (
	EventTypeSnapshot = "ducc.job.snapshot"
	EventSource       = "jobcore/orchestrator"
)

// Publisher sends a monitor record for every job mutation. It implements
// job.Notifier.
type Publisher struct {
	dispatcher  dispatcher.Dispatcher
	tracker     *Tracker
	destination string
	signingKey  string
	logger      *slog.Logger
}

// NewPublisher creates a publisher delivering to destination. An empty
// signingKey disables signing. With a nil dispatcher the publisher only
// tracks state sequences.
func NewPublisher(d dispatcher.Dispatcher, tracker *Tracker, destination, signingKey string) *Publisher {
	return &Publisher{
		dispatcher:  d,
		tracker:     tracker,
		destination: destination,
		signingKey:  signingKey,
		logger:      slog.With("component", "monitor"),
	}
}

// Notify records the job's state and queues its record for delivery. A
// completed job is forgotten by the tracker once its final record is queued,
// or right away when nothing is published.
func (p *Publisher) Notify(j *job.Job) {
	seq := p.tracker.Observe(j)
	if j.IsCompleted() {
		defer p.tracker.Forget(j.ID())
	}
	if p.dispatcher == nil {
		return
	}
	id := j.ID().String()
	info := FromJob(j, seq)

	data, err := info.Data()
	if err != nil {
		p.logger.Error("Failed to encode monitor record", "jobId", id, "error", err)
		return
	}

	err = p.dispatcher.Dispatch(&dispatcher.Event{
		Payload:     cloudevent.New(EventTypeSnapshot, EventSource, id, data),
		Destination: p.destination,
		SigningKey:  p.signingKey,
	})
	switch {
	case errors.Is(err, dispatcher.ErrBufferFull):
		p.logger.Warn("Monitor record dropped", "jobId", id)
	case err != nil:
		p.logger.Debug("Monitor record not queued", "jobId", id, "error", err)
	}
}

var _ job.Notifier = (*Publisher)(nil)
