// Package observability routes finished trace spans into the structured log.
package observability

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const eventMessage = "observability.event"

// LogExporter writes every finished span as one logrus entry.
type LogExporter struct {
	logger *log.Logger
}

func NewLogExporter(logger *log.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		attrs := make(map[string]any, len(s.Attributes()))
		for _, kv := range s.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInterface()
		}
		fields := log.Fields{
			"event.name":  s.Name(),
			"trace_id":    s.SpanContext().TraceID().String(),
			"span_id":     s.SpanContext().SpanID().String(),
			"duration_ms": float64(s.EndTime().Sub(s.StartTime())) / 1e6,
			"attributes":  attrs,
		}
		entry := e.logger.WithFields(fields)
		if s.Status().Code == codes.Error {
			entry.WithField("error", s.Status().Description).Warn(eventMessage)
			continue
		}
		entry.Info(eventMessage)
	}
	return nil
}

func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

// NewTracerProvider returns a provider that exports spans synchronously to logger.
func NewTracerProvider(logger *log.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(NewLogExporter(logger)))
}
