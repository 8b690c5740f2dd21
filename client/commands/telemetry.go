package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ocuroot/ud/about"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

const name = "github.com/ocuroot/ud/client/commands"

var tracer = otel.Tracer(name)

func setupTelemetry() func() {
	if os.Getenv("ENABLE_OTEL") == "" {
		return func() {}
	}

	log.Info("Enabling OpenTelemetry")

	res, err := newResource()
	if err != nil {
		log.Error("Could not create telemetry resource, tracing disabled", "error", err)
		return func() {}
	}

	tp, err := initTracer(context.Background(), res)
	if err != nil {
		log.Error("Could not initialize tracer, tracing disabled", "error", err)
		return func() {}
	}

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}
}

func newResource() (*resource.Resource, error) {
	return resource.Merge(resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNamespace("ocuroot"),
			semconv.ServiceName("ud"),
			semconv.ServiceVersion(about.Version),
		))
}

func parseHeaders(headers string) (map[string]string, error) {
	headerMap := make(map[string]string)
	for _, h := range strings.Split(headers, ",") {
		headerParts := strings.SplitN(h, "=", 2)
		if len(headerParts) != 2 {
			return nil, fmt.Errorf("invalid header format: %s", h)
		}
		headerMap[headerParts[0]] = headerParts[1]
	}
	return headerMap, nil
}

func initTracer(ctx context.Context, res *resource.Resource) (*trace.TracerProvider, error) {
	var options []otlptracehttp.Option

	otlpURL := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpURL == "" {
		otlpURL = "http://localhost:4318"
	}

	options = append(options, otlptracehttp.WithEndpointURL(otlpURL))
	if strings.HasPrefix(otlpURL, "http://") {
		options = append(options, otlptracehttp.WithInsecure())
	}

	if headers := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); headers != "" {
		headerMap, err := parseHeaders(headers)
		if err != nil {
			return nil, err
		}
		options = append(options, otlptracehttp.WithHeaders(headerMap))
	}

	exporter, err := otlptracehttp.New(
		ctx,
		options...,
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}
