package tracing

import (
	"context"
	"errors"
	"testing"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestSetupNoneIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{Exporter: "none"}, "test", nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), config.TracingConfig{Exporter: "zipkin"}, "test", nil); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
	if _, err := Setup(context.Background(), config.TracingConfig{Exporter: "otlp"}, "test", nil); err == nil {
		t.Fatal("expected error for otlp without endpoint")
	}
}

func TestFailRecordsErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "op")

	Fail(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Status().Code != otelcodes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status())
	}
}
