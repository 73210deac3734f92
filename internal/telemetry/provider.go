// Package telemetry exports eval results as OpenTelemetry traces over
// OTLP/HTTP. Langfuse ingests the same spans through its OTel endpoint.
package telemetry

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// InstrumentationName is the OTel instrumentation scope name.
	InstrumentationName = "github.com/emergent-company/epf-eval"

	// DefaultServiceName is reported as service.name when none is configured.
	DefaultServiceName = "epf-eval"

	// DefaultLangfuseHost is used when LANGFUSE_HOST is unset.
	DefaultLangfuseHost = "https://cloud.langfuse.com"

	langfuseTracesPath = "/api/public/otel/v1/traces"
	otlpTracesPath     = "/v1/traces"
)

// Config describes where traces go. A zero Endpoint disables export.
type Config struct {
	Endpoint    string
	Headers     map[string]string
	ServiceName string
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Target names the backend for user-facing messages.
func (c Config) Target() string {
	if strings.HasSuffix(c.Endpoint, langfuseTracesPath) {
		return "Langfuse"
	}
	return c.Endpoint
}

// FromEnv resolves the export target. Langfuse credentials win over
// OTEL_EXPORTER_OTLP_ENDPOINT, and both win over endpoint, which is the
// configured fallback.
func FromEnv(getenv func(string) string, endpoint, serviceName string) Config {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	cfg := Config{ServiceName: serviceName, Headers: map[string]string{}}

	pub, secret := getenv("LANGFUSE_PUBLIC_KEY"), getenv("LANGFUSE_SECRET_KEY")
	if pub != "" && secret != "" {
		host := getenv("LANGFUSE_HOST")
		if host == "" {
			host = DefaultLangfuseHost
		}
		cfg.Endpoint = strings.TrimRight(host, "/") + langfuseTracesPath
		cfg.Headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(pub+":"+secret))
	} else if base := getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); base != "" {
		cfg.Endpoint = strings.TrimRight(base, "/") + otlpTracesPath
	} else {
		cfg.Endpoint = endpoint
	}
	return cfg
}

// NewTracerProvider creates a TracerProvider that exports spans via OTLP/HTTP.
// The caller is responsible for calling Shutdown on the returned provider.
func NewTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}
