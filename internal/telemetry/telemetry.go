// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/irfndi/rial-arbitrage-go/internal/config"
)

const (
	ServiceVersion = "1.0.0"
	tracesPath     = "/v1/traces"
)

// Provider wraps the installed tracer provider and its shutdown hook.
type Provider struct {
	tracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
	exporter       string
}

// TracerProvider returns the installed provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

// Tracer returns a named tracer from the installed provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tracerProvider.Tracer(name)
}

// Exporter names the exporter in use: "otlp", "stdout" or "none".
func (p *Provider) Exporter() string {
	return p.exporter
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// Init installs a tracer provider as the global one. An OTLP/HTTP exporter is
// used when an endpoint is configured, spans are printed to stdout in
// development, and a no-op provider is installed when tracing is disabled.
func Init(ctx context.Context, cfg config.TelemetryConfig, environment string) (*Provider, error) {
	return initWithWriter(ctx, cfg, environment, os.Stdout)
}

func initWithWriter(ctx context.Context, cfg config.TelemetryConfig, environment string, w io.Writer) (*Provider, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{tracerProvider: tp, exporter: "none"}, nil
	}

	var (
		exporter sdktrace.SpanExporter
		kind     string
		err      error
	)
	switch {
	case strings.TrimSpace(cfg.OTLPEndpoint) != "":
		hostport, urlPath, insecure, _, nerr := normalizeOTLPEndpoint(cfg.OTLPEndpoint)
		if nerr != nil {
			return nil, nerr
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(hostport),
			otlptracehttp.WithURLPath(urlPath),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
		kind = "otlp"
	case environment == "development":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
		kind = "stdout"
	default:
		return nil, fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is enabled in %s", environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trace exporter: %w", kind, err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "rial-arbitrage"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp, shutdown: tp.Shutdown, exporter: kind}, nil
}

// normalizeOTLPEndpoint splits a collector URL into the pieces otlptracehttp
// wants. The traces path is appended unless already present.
func normalizeOTLPEndpoint(raw string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", false, "", fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", false, "", fmt.Errorf("invalid OTLP endpoint %q: expected http(s)://host:port", raw)
	}

	urlPath = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(urlPath, tracesPath) {
		urlPath += tracesPath
	}
	insecure = u.Scheme == "http"
	resolved = u.Scheme + "://" + u.Host + urlPath
	return u.Host, urlPath, insecure, resolved, nil
}
