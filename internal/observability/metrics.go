package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the orchestrator's metrics:
//   - HTTP golden signals for the endpoint
//   - job lifecycle counters
//   - per-job process gauges (alive, swap, page-ins, failures)
//   - snapshot publisher delivery
type Metrics struct {
	meter metric.Meter

	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	JobsAdmitted  metric.Int64Counter
	JobsCanceled  metric.Int64Counter
	JobsCompleted metric.Int64Counter

	ProcessesAlive metric.Int64Gauge
	SwapGB         metric.Float64Gauge
	PageIns        metric.Int64Gauge
	InitFailures   metric.Int64Gauge
	Failures       metric.Int64Gauge

	PublisherDuration  metric.Float64Histogram
	PublisherDelivered metric.Int64Counter
	PublisherFailed    metric.Int64Counter
	PublisherDropped   metric.Int64Counter
	PublisherQueueSize metric.Int64Gauge
}

// JobSample is one reading of a job's process aggregates.
type JobSample struct {
	JobID          string
	Kind           string
	AliveProcesses int64
	SwapGB         float64
	PageIns        int64
	InitFailures   int64
	Failures       int64
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider.Meter("jobcore"))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	); err != nil {
		return nil, err
	}

	if m.JobsAdmitted, err = meter.Int64Counter(
		"jobs_admitted_total",
		metric.WithDescription("Total number of jobs and services admitted"),
	); err != nil {
		return nil, err
	}
	if m.JobsCanceled, err = meter.Int64Counter(
		"jobs_canceled_total",
		metric.WithDescription("Total number of jobs and services canceled by request"),
	); err != nil {
		return nil, err
	}
	if m.JobsCompleted, err = meter.Int64Counter(
		"jobs_completed_total",
		metric.WithDescription("Total number of completions recorded, by completion type"),
	); err != nil {
		return nil, err
	}

	if m.ProcessesAlive, err = meter.Int64Gauge(
		"job_processes_alive",
		metric.WithDescription("Live primary processes per job"),
	); err != nil {
		return nil, err
	}
	if m.SwapGB, err = meter.Float64Gauge(
		"job_swap_gigabytes",
		metric.WithDescription("Swap in use across primary and driver processes"),
		metric.WithUnit("GBy"),
	); err != nil {
		return nil, err
	}
	if m.PageIns, err = meter.Int64Gauge(
		"job_page_ins",
		metric.WithDescription("Page-ins across primary and driver processes"),
	); err != nil {
		return nil, err
	}
	if m.InitFailures, err = meter.Int64Gauge(
		"job_process_init_failures",
		metric.WithDescription("Processes that failed during initialization"),
	); err != nil {
		return nil, err
	}
	if m.Failures, err = meter.Int64Gauge(
		"job_process_failures",
		metric.WithDescription("Processes that failed after initialization"),
	); err != nil {
		return nil, err
	}

	if m.PublisherDuration, err = meter.Float64Histogram(
		"publisher_duration_seconds",
		metric.WithDescription("Snapshot delivery latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, err
	}
	if m.PublisherDelivered, err = meter.Int64Counter(
		"publisher_delivered_total",
		metric.WithDescription("Total snapshots successfully delivered"),
	); err != nil {
		return nil, err
	}
	if m.PublisherFailed, err = meter.Int64Counter(
		"publisher_failed_total",
		metric.WithDescription("Total snapshots failed after retries"),
	); err != nil {
		return nil, err
	}
	if m.PublisherDropped, err = meter.Int64Counter(
		"publisher_dropped_total",
		metric.WithDescription("Total snapshots dropped (buffer full or rate limited)"),
	); err != nil {
		return nil, err
	}
	if m.PublisherQueueSize, err = meter.Int64Gauge(
		"publisher_queue_size",
		metric.WithDescription("Current number of snapshots waiting for delivery"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordJobAdmitted records a job or service entering the registry.
func (m *Metrics) RecordJobAdmitted(ctx context.Context, kind string) {
	m.JobsAdmitted.Add(ctx, 1, metric.WithAttributes(kindAttr(kind)))
}

// RecordJobCanceled records a cancel request that took effect.
func (m *Metrics) RecordJobCanceled(ctx context.Context, kind string) {
	m.JobsCanceled.Add(ctx, 1, metric.WithAttributes(kindAttr(kind)))
}

// RecordJobCompleted records a completion outcome.
func (m *Metrics) RecordJobCompleted(ctx context.Context, kind, completion string) {
	m.JobsCompleted.Add(ctx, 1, metric.WithAttributes(kindAttr(kind), completionAttr(completion)))
}

// RecordJobSample records the latest process aggregates of one job.
func (m *Metrics) RecordJobSample(ctx context.Context, s JobSample) {
	attrs := metric.WithAttributes(jobAttr(s.JobID), kindAttr(s.Kind))
	m.ProcessesAlive.Record(ctx, s.AliveProcesses, attrs)
	m.SwapGB.Record(ctx, s.SwapGB, attrs)
	m.PageIns.Record(ctx, s.PageIns, attrs)
	m.InitFailures.Record(ctx, s.InitFailures, attrs)
	m.Failures.Record(ctx, s.Failures, attrs)
}

// RecordDispatcherDelivered records a successful snapshot delivery with its duration.
func (m *Metrics) RecordDispatcherDelivered(ctx context.Context, durationSeconds float64) {
	m.PublisherDelivered.Add(ctx, 1)
	m.PublisherDuration.Record(ctx, durationSeconds)
}

// RecordDispatcherFailed records a failed snapshot delivery.
func (m *Metrics) RecordDispatcherFailed(ctx context.Context) {
	m.PublisherFailed.Add(ctx, 1)
}

// RecordDispatcherDropped records a dropped snapshot.
func (m *Metrics) RecordDispatcherDropped(ctx context.Context) {
	m.PublisherDropped.Add(ctx, 1)
}

// RecordDispatcherQueueSize records the current queue size.
func (m *Metrics) RecordDispatcherQueueSize(ctx context.Context, size int64) {
	m.PublisherQueueSize.Record(ctx, size)
}
