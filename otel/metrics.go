package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/core"
)

// MetricsHandler records engine events as OpenTelemetry metrics.
type MetricsHandler struct {
	toolExecutions metric.Int64Counter
	toolFailures   metric.Int64Counter
	toolSkips      metric.Int64Counter
	toolDuration   metric.Float64Histogram
	runDuration    metric.Float64Histogram
}

// NewMetricsHandler creates a MetricsHandler with instruments registered
// on the given meter.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	toolExecutions, err := meter.Int64Counter(
		"qualgate.tool.executions",
		metric.WithDescription("Number of tool executions"),
	)
	if err != nil {
		return nil, err
	}

	toolFailures, err := meter.Int64Counter(
		"qualgate.tool.failures",
		metric.WithDescription("Number of failed tool executions"),
	)
	if err != nil {
		return nil, err
	}

	toolSkips, err := meter.Int64Counter(
		"qualgate.tool.skips",
		metric.WithDescription("Number of skipped tools"),
	)
	if err != nil {
		return nil, err
	}

	toolDuration, err := meter.Float64Histogram(
		"qualgate.tool.duration",
		metric.WithDescription("Tool execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"qualgate.run.duration",
		metric.WithDescription("Total run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		toolExecutions: toolExecutions,
		toolFailures:   toolFailures,
		toolSkips:      toolSkips,
		toolDuration:   toolDuration,
		runDuration:    runDuration,
	}, nil
}

// Handle records metrics for the given engine event. It satisfies the
// qualgate.EventHandler signature.
func (h *MetricsHandler) Handle(e qualgate.Event) {
	ctx := context.Background()

	switch e.Kind {
	case qualgate.EventToolFinished:
		attrs := metric.WithAttributes(
			attribute.String("tool", e.Tool),
			attribute.String("dimension", string(e.Dimension)),
			attribute.String("run_id", e.RunID),
		)
		h.toolExecutions.Add(ctx, 1, attrs)
		h.toolDuration.Record(ctx, e.Elapsed.Seconds(), attrs)

		if status, ok := payloadString(e.Payload, "status"); ok && status == string(core.StatusFailure) {
			h.toolFailures.Add(ctx, 1, attrs)
		}

	case qualgate.EventToolSkipped:
		attrs := []attribute.KeyValue{
			attribute.String("tool", e.Tool),
			attribute.String("dimension", string(e.Dimension)),
			attribute.String("run_id", e.RunID),
		}
		if reason, ok := payloadString(e.Payload, "reason"); ok {
			attrs = append(attrs, attribute.String("reason", reason))
		}
		h.toolSkips.Add(ctx, 1, metric.WithAttributes(attrs...))

	case qualgate.EventRunFinished:
		attrs := []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
		}
		if classification, ok := payloadString(e.Payload, "classification"); ok {
			attrs = append(attrs, attribute.String("classification", classification))
		}
		h.runDuration.Record(ctx, e.Elapsed.Seconds(), metric.WithAttributes(attrs...))
	}
}
