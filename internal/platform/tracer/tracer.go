package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config describes how spans are sampled and where they are exported.
type Config struct {
	ServiceName string
	Environment string
	// Endpoint is the OTLP gRPC collector; empty disables export.
	Endpoint string
	// SampleRatio applies to new root traces. Children follow their parent.
	SampleRatio float64
}

func (c Config) sampler() sdktrace.Sampler {
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

func (c Config) resource(appLogger *logger.Logger) *resource.Resource {
	attrs := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(c.ServiceName),
		semconv.DeploymentEnvironmentKey.String(c.Environment),
	)
	res, err := resource.Merge(resource.Default(), attrs)
	if err != nil {
		appLogger.Warn("Failed to merge OpenTelemetry resource, using service attributes only", zap.Error(err))
		return attrs
	}
	return res
}

// InitTracer installs the global tracer provider and propagators. Spans are
// always created so trace ids reach logs and NATS headers; they are exported
// only when an endpoint is configured and the exporter could be built.
func InitTracer(cfg Config, appLogger *logger.Logger) *sdktrace.TracerProvider {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(cfg.sampler()),
		sdktrace.WithResource(cfg.resource(appLogger)),
	}

	switch exporter, err := newExporter(cfg.Endpoint); {
	case cfg.Endpoint == "":
		appLogger.Info("OpenTelemetry export is disabled: OTEL_EXPORTER_OTLP_ENDPOINT is not set")
	case err != nil:
		appLogger.Error("OpenTelemetry export is disabled", zap.String("endpoint", cfg.Endpoint), zap.Error(err))
	default:
		opts = append(opts, sdktrace.WithBatcher(exporter))
		appLogger.Info("OpenTelemetry export enabled",
			zap.String("service_name", cfg.ServiceName),
			zap.String("otlp_endpoint", cfg.Endpoint),
			zap.Float64("sample_ratio", cfg.SampleRatio),
		)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}

func newExporter(endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		return nil, nil
	}
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("create OTLP gRPC client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}
