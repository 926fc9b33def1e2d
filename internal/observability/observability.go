// Package observability wires optional OpenTelemetry export for the
// wikiscout commands. Export is off by default; when enabled, traces and
// metrics flow to a single OTLP endpoint over http/protobuf or gRPC.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/wikiscout/wikiscout/internal/types"
)

const (
	defaultServiceName   = "wikiscout"
	protocolHTTP         = "http/protobuf"
	protocolGRPC         = "grpc"
	serviceNameAttribute = "service.name"

	defaultExportInterval  = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Config is the resolved telemetry configuration for one process.
type Config struct {
	Enabled              bool
	ServiceName          string
	ExporterEndpoint     string
	ExporterProtocol     string
	ResourceAttributes   map[string]string
	TracesSampler        string
	TracesSamplerArg     float64
	MetricExportInterval time.Duration
}

// ShutdownFunc flushes pending telemetry and stops the exporters.
type ShutdownFunc func(context.Context) error

// LoadConfig extracts and validates the telemetry settings from the
// application config.
func LoadConfig(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: application config is nil")
	}

	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: bad WIKISCOUT_OTEL_RESOURCE_ATTRIBUTES: %w", err)
	}

	out := &Config{
		Enabled:              cfg.OTelEnabled,
		ServiceName:          strings.TrimSpace(cfg.OTelServiceName),
		ExporterEndpoint:     strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		ExporterProtocol:     strings.TrimSpace(cfg.OTelExporterOTLPProtocol),
		ResourceAttributes:   attrs,
		TracesSampler:        strings.TrimSpace(cfg.OTelTracesSampler),
		TracesSamplerArg:     cfg.OTelTracesSamplerArg,
		MetricExportInterval: cfg.OTelMetricExportInterval,
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate fills defaults and checks that an enabled configuration can
// actually reach its exporter.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("observability: config is nil")
	}

	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	c.ExporterProtocol = strings.ToLower(strings.TrimSpace(c.ExporterProtocol))
	if c.ExporterProtocol == "" {
		c.ExporterProtocol = protocolHTTP
	}
	if c.TracesSampler == "" {
		c.TracesSampler = "always_on"
	}
	if c.MetricExportInterval <= 0 {
		c.MetricExportInterval = defaultExportInterval
	}
	if c.ResourceAttributes == nil {
		c.ResourceAttributes = make(map[string]string)
	}
	if _, ok := c.ResourceAttributes[serviceNameAttribute]; !ok {
		c.ResourceAttributes[serviceNameAttribute] = c.ServiceName
	}

	if !c.Enabled {
		return nil
	}

	if c.ExporterEndpoint == "" {
		return fmt.Errorf("observability: an OTLP endpoint is required when export is enabled")
	}

	switch c.ExporterProtocol {
	case protocolHTTP:
		if err := checkHTTPEndpoint(c.ExporterEndpoint); err != nil {
			return err
		}
	case protocolGRPC:
		if err := checkGRPCEndpoint(c.ExporterEndpoint); err != nil {
			return err
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP protocol %q", c.ExporterProtocol)
	}

	if c.TracesSamplerArg < 0 {
		return fmt.Errorf("observability: traces sampler argument must be non-negative")
	}
	if strings.EqualFold(c.TracesSampler, "traceidratio") &&
		(c.TracesSamplerArg <= 0 || c.TracesSamplerArg > 1) {
		return fmt.Errorf("observability: traceidratio sampler needs an argument in (0, 1]")
	}

	return nil
}

func checkHTTPEndpoint(endpoint string) error {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return fmt.Errorf("observability: http/protobuf endpoint %q must carry an http or https scheme", endpoint)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("observability: invalid OTLP endpoint: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("observability: OTLP endpoint %q has no host", endpoint)
	}
	return nil
}

func checkGRPCEndpoint(endpoint string) error {
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return fmt.Errorf("observability: invalid OTLP endpoint: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("observability: OTLP endpoint %q has no host", endpoint)
		}
		return nil
	}
	if !strings.Contains(endpoint, ":") {
		return fmt.Errorf("observability: grpc endpoint %q should be host:port", endpoint)
	}
	return nil
}

// parseResourceAttributes reads a comma-separated key=value list.
func parseResourceAttributes(input string) (map[string]string, error) {
	attrs := make(map[string]string)
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("attribute %q is not key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("attribute %q has an empty key", pair)
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

// Init installs the global tracer and meter providers and returns the
// function that flushes and stops them. With export disabled the
// providers are inert no-ops, so callers never need to branch.
func Init(rootCfg *types.Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	cfg, err := LoadConfig(rootCfg)
	if err != nil {
		return noop, err
	}

	ctx := context.Background()

	tp, err := setupTracing(ctx, cfg)
	if err != nil {
		return noop, err
	}

	mp, err := setupMetrics(ctx, cfg)
	if err != nil {
		_ = shutdownProviders(ctx, tp, nil)
		return noop, err
	}

	return func(ctx context.Context) error {
		return shutdownProviders(ctx, tp, mp)
	}, nil
}

// shutdownProviders stops both providers, applying a default deadline
// when the caller's context has none.
func shutdownProviders(ctx context.Context, tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}

	var errs []error
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
