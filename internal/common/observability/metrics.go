package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	ServiceName string
	// OTLPEndpoint enables trace export over gRPC, e.g. "localhost:4317".
	OTLPEndpoint string
	Insecure     bool
}

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	questionCounter otelmetric.Int64Counter
	answerDuration  otelmetric.Float64Histogram
}

// New installs global meter and tracer providers. Metrics are exposed
// through the Prometheus registry served on /metrics.
func New(ctx context.Context, cfg Config) *Observability {
	res := resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName))
	o := &Observability{}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
		otel.SetMeterProvider(o.meterProvider)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTLPEndpoint != "" {
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		traceExporter, err := otlptracegrpc.New(ctx, clientOpts...)
		if err != nil {
			log.Printf("Failed to create OTLP trace exporter: %v", err)
		} else {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(traceExporter))
		}
	}
	o.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(o.tracerProvider)

	o.meter = otel.Meter(cfg.ServiceName)
	o.tracer = o.tracerProvider.Tracer(cfg.ServiceName)

	o.questionCounter, _ = o.meter.Int64Counter(
		"chatbot.questions",
		otelmetric.WithDescription("Number of questions handled"),
	)
	o.answerDuration, _ = o.meter.Float64Histogram(
		"chatbot.answer.duration",
		otelmetric.WithDescription("Question handling duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

func (o *Observability) Tracer() trace.Tracer {
	if o.tracer == nil {
		return otel.Tracer("cattle-chatbot")
	}
	return o.tracer
}

// RecordQuestion counts one handled question by metric and outcome.
func (o *Observability) RecordQuestion(ctx context.Context, metric, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("metric", metric),
		attribute.String("outcome", outcome),
	)
	if o.questionCounter != nil {
		o.questionCounter.Add(ctx, 1, attrs)
	}
	if o.answerDuration != nil {
		o.answerDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
