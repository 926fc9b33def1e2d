package types

import (
	"fmt"
	"time"
)

// SearchResult represents one ranked item returned by the search service.
// The service produces it in full; this client only stores and renders it.
type SearchResult struct {
	URL                string  `json:"url"`
	Name               string  `json:"name"`
	WeightedSimilarity float64 `json:"weighted_similarity"`
	TLDR               string  `json:"tldr"`
	Summary            string  `json:"summary"`
}

// QueryParameters represents the input state for an initial search request.
type QueryParameters struct {
	Query               string `json:"query"`
	TopK                int    `json:"top_k"`
	ScrappingTotalLimit int    `json:"scrapping_total_limit"`
	ReuseIndex          bool   `json:"reuse_index"`
}

// RefinementParameters represents the input state for a refinement request.
// Positive and Negative hold individual terms, already split and trimmed.
type RefinementParameters struct {
	TopK     int      `json:"top_k"`
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// ClientError represents a failed call to the search service
type ClientError struct {
	Type       ErrorType     `json:"type"`
	Message    string        `json:"message"`
	Endpoint   string        `json:"endpoint"`
	StatusCode int           `json:"status_code,omitempty"`
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Cause      error         `json:"-"`
}

// Error implements the error interface for ClientError
func (ce *ClientError) Error() string {
	if ce.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (endpoint: %s, status: %d)", ce.Type, ce.Message, ce.Endpoint, ce.StatusCode)
	}
	return fmt.Sprintf("[%s] %s (endpoint: %s)", ce.Type, ce.Message, ce.Endpoint)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (ce *ClientError) Unwrap() error {
	return ce.Cause
}

// IsRetryable returns whether a caller could reasonably reissue the request
func (ce *ClientError) IsRetryable() bool {
	return ce.Retryable
}

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeClient     ErrorType = "client"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeResponse   ErrorType = "response"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Config represents the wikiscout configuration
type Config struct {
	// Search service configuration
	APIBaseURL          string `json:"api_base_url" env:"WIKISCOUT_API_BASE_URL,default=http://127.0.0.1:8000"`
	TopK                int    `json:"top_k" env:"WIKISCOUT_TOP_K,default=10"`
	ScrappingTotalLimit int    `json:"scrapping_total_limit" env:"WIKISCOUT_SCRAPPING_TOTAL_LIMIT,default=50"`
	ReuseIndex          bool   `json:"reuse_index" env:"WIKISCOUT_REUSE_INDEX,default=true"`

	// HTTP client configuration
	HTTPTimeout       time.Duration `json:"http_timeout" env:"WIKISCOUT_HTTP_TIMEOUT,default=60s"`
	RequestsPerSecond float64       `json:"requests_per_second" env:"WIKISCOUT_REQUESTS_PER_SECOND,default=5.0"`
	RateBurst         int           `json:"rate_burst" env:"WIKISCOUT_RATE_BURST,default=10"`
	MaxIdleConns      int           `json:"max_idle_conns" env:"WIKISCOUT_MAX_IDLE_CONNS,default=10"`
	IdleConnTimeout   time.Duration `json:"idle_conn_timeout" env:"WIKISCOUT_IDLE_CONN_TIMEOUT,default=90s"`

	// Web console configuration
	WebUIHost       string        `json:"webui_host" env:"WIKISCOUT_WEBUI_HOST,default=127.0.0.1"`
	WebUIPort       int           `json:"webui_port" env:"WIKISCOUT_WEBUI_PORT,default=8080"`
	RefreshInterval time.Duration `json:"refresh_interval" env:"WIKISCOUT_REFRESH_INTERVAL,default=0s"`

	// OpenTelemetry configuration
	OTelEnabled              bool          `json:"otel_enabled" env:"WIKISCOUT_OTEL_ENABLED,default=false"`
	OTelServiceName          string        `json:"otel_service_name" env:"WIKISCOUT_OTEL_SERVICE_NAME,default=wikiscout"`
	OTelExporterOTLPEndpoint string        `json:"otel_exporter_otlp_endpoint" env:"WIKISCOUT_OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string        `json:"otel_exporter_otlp_protocol" env:"WIKISCOUT_OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string        `json:"otel_resource_attributes" env:"WIKISCOUT_OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string        `json:"otel_traces_sampler" env:"WIKISCOUT_OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64       `json:"otel_traces_sampler_arg" env:"WIKISCOUT_OTEL_TRACES_SAMPLER_ARG,default=0"`
	OTelMetricExportInterval time.Duration `json:"otel_metric_export_interval" env:"WIKISCOUT_OTEL_METRIC_EXPORT_INTERVAL,default=60s"`
}
