package otel

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/gate-labs/qualgate"
)

// EnrichHandler wraps an EventHandler with OpenTelemetry trace context.
// When events pass through, it looks up the active span from the
// TracingHandler and adds trace_id and span_id entries to the payload.
//
// For tool-level events (where Tool is set), the tool span is checked
// first. If no tool span is found, it falls back to the run-level span.
// When no span is active, the event passes through unchanged.
func EnrichHandler(next qualgate.EventHandler, tracing *TracingHandler) qualgate.EventHandler {
	return func(e qualgate.Event) {
		var sc trace.SpanContext
		if e.Tool != "" {
			sc = tracing.ActiveSpanContext(e.RunID, e.Tool, e.Dimension)
		}
		if !sc.IsValid() && e.RunID != "" {
			sc = tracing.ActiveRunSpanContext(e.RunID)
		}
		if sc.IsValid() {
			e = e.WithPayload("trace_id", sc.TraceID().String()).
				WithPayload("span_id", sc.SpanID().String())
		}
		next(e)
	}
}
