// Package tracing configures the OpenTelemetry tracer provider used for
// classification spans. With tracing disabled the global no-op provider is
// left in place.
package tracing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/moolen/medidesk/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// ServiceName is reported as the OTLP resource service.name.
const ServiceName = "medidesk"

// Config selects the OTLP gRPC export target.
type Config struct {
	Enabled     bool
	Endpoint    string // host:port of the collector
	TLSCAPath   string
	TLSInsecure bool
}

// Provider owns the SDK tracer provider and implements lifecycle.Component.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	logger         *logging.Logger
	enabled        bool
}

// NewProvider builds the exporter and installs the provider globally.
func NewProvider(cfg Config, version string) (*Provider, error) {
	logger := logging.GetLogger("tracing")

	if !cfg.Enabled {
		logger.Debug("Tracing disabled")
		return &Provider{logger: logger}, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing enabled but endpoint not configured")
	}

	transport, err := transportOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, append(transport, otlptracegrpc.WithEndpoint(cfg.Endpoint))...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	logger.Info("Exporting traces to %s", cfg.Endpoint)

	return &Provider{tracerProvider: tp, logger: logger, enabled: true}, nil
}

func transportOptions(cfg Config, logger *logging.Logger) ([]otlptracegrpc.Option, error) {
	if cfg.TLSCAPath == "" && !cfg.TLSInsecure {
		return []otlptracegrpc.Option{
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.TLSInsecure {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in via tracing.tls_insecure
		logger.Warn("Trace export uses TLS without certificate verification")
	} else {
		pem, err := os.ReadFile(cfg.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.TLSCAPath)
		}
		tlsConfig.RootCAs = pool
	}

	return []otlptracegrpc.Option{
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig))),
	}, nil
}

func (p *Provider) Start(context.Context) error {
	return nil
}

// Stop flushes buffered spans.
func (p *Provider) Stop(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush spans: %w", err)
	}
	p.logger.Debug("Tracer provider shut down")
	return nil
}

func (p *Provider) Name() string {
	return "tracing"
}

// Tracer returns a tracer from the global provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

func (p *Provider) Enabled() bool {
	return p.enabled
}
