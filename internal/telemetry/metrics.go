package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the intake service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	PatientTotal         metric.Int64Counter
	StepSubmissionsTotal metric.Int64Counter
	UploadsTotal         metric.Int64Counter

	// Engine metrics
	EngineCallsTotal   metric.Int64Counter
	EngineCallDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/whitewolf2000ani/hiperhealth")

	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	patientTotal, err := meter.Int64Counter(
		"patient_total",
		metric.WithDescription("Total number of patient operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	stepSubmissionsTotal, err := meter.Int64Counter(
		"consultation_step_submissions_total",
		metric.WithDescription("Total number of wizard step submissions"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	uploadsTotal, err := meter.Int64Counter(
		"file_uploads_total",
		metric.WithDescription("Total number of file uploads"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, err
	}

	engineCallsTotal, err := meter.Int64Counter(
		"engine_calls_total",
		metric.WithDescription("Total number of diagnostics engine calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	engineCallDuration, err := meter.Float64Histogram(
		"engine_call_duration_milliseconds",
		metric.WithDescription("Diagnostics engine call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTPRequestsTotal:    httpRequestsTotal,
		HTTPDurationMs:       httpDurationMs,
		PatientTotal:         patientTotal,
		StepSubmissionsTotal: stepSubmissionsTotal,
		UploadsTotal:         uploadsTotal,
		EngineCallsTotal:     engineCallsTotal,
		EngineCallDuration:   engineCallDuration,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordPatientOperation records a patient operation metric
func (m *Metrics) RecordPatientOperation(ctx context.Context, operation string) {
	m.PatientTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordStepSubmission records a wizard step submission metric
func (m *Metrics) RecordStepSubmission(ctx context.Context, step string) {
	m.StepSubmissionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
	))
}

// RecordUpload records a file upload metric
func (m *Metrics) RecordUpload(ctx context.Context, kind string, accepted bool) {
	m.UploadsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("accepted", accepted),
	))
}

// RecordEngineCall records a diagnostics engine call metric
func (m *Metrics) RecordEngineCall(ctx context.Context, operation string, durationMs float64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	}
	m.EngineCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.EngineCallDuration.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}
