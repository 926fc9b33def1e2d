package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/wikiscout/wikiscout/internal/types"
)

var clientTracer = otel.Tracer("wikiscout/searchapi")

// maxErrorBodyBytes caps how much of a failed response body is read for
// diagnostics.
const maxErrorBodyBytes = 64 << 10

// Client is the HTTP client for the Wikipedia search service.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *rate.Limiter
	logger      *log.Logger
}

// NewClient creates a client for the search service at cfg.BaseURL.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:      log.New(os.Stderr, "[searchapi] ", log.LstdFlags),
	}, nil
}

// SetLogger sets a custom logger for the client.
func (c *Client) SetLogger(logger *log.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() *url.URL {
	clone := *c.baseURL
	return &clone
}

// Query issues the initial search request and returns the ranked results.
func (c *Client) Query(ctx context.Context, params types.QueryParameters) ([]types.SearchResult, error) {
	ctx, span := clientTracer.Start(ctx, "searchapi.query", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("search.query", truncateAttribute(params.Query)),
		attribute.Int("search.top_k", params.TopK),
		attribute.Int("search.scrapping_total_limit", params.ScrappingTotalLimit),
		attribute.Bool("search.reuse_index", params.ReuseIndex),
	)

	req, err := BuildQueryRequest(c.baseURL, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build_request_failed")
		return nil, err
	}

	results, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query_failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("search.result_count", len(results)))
	span.SetStatus(codes.Ok, "query_completed")
	return results, nil
}

// Refine issues the refinement request and returns the re-ranked results.
// The service refines its own previous search; calling this before any
// query has completed server-side yields a server error.
func (c *Client) Refine(ctx context.Context, params types.RefinementParameters) ([]types.SearchResult, error) {
	ctx, span := clientTracer.Start(ctx, "searchapi.refine", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.Int("search.top_k", params.TopK),
		attribute.Int("search.positive_terms", len(params.Positive)),
		attribute.Int("search.negative_terms", len(params.Negative)),
	)

	req, err := BuildRefinementRequest(c.baseURL, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build_request_failed")
		return nil, err
	}

	results, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refine_failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("search.result_count", len(results)))
	span.SetStatus(codes.Ok, "refine_completed")
	return results, nil
}

// Ping reports whether the search service is reachable. Any HTTP response
// counts as reachable; the service answers its root path with a redirect
// to its API docs.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClassifyConnectionError(err, "/")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]types.SearchResult, error) {
	endpoint := req.URL.Path

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		clientErr := ClassifyConnectionError(err, endpoint)
		c.logger.Printf("request to %s failed: %v", endpoint, clientErr)
		return nil, clientErr
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		clientErr := ClassifyHTTPError(resp.StatusCode, resp.Header, string(body), endpoint)
		c.logger.Printf("request to %s failed: %v", endpoint, clientErr)
		return nil, clientErr
	}

	var results []types.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		clientErr := &types.ClientError{
			Type:     types.ErrorTypeResponse,
			Message:  fmt.Sprintf("failed to decode response body: %v", err),
			Endpoint: endpoint,
			Cause:    err,
		}
		c.logger.Printf("request to %s failed: %v", endpoint, clientErr)
		return nil, clientErr
	}

	c.logger.Printf("request to %s completed: %d results in %v",
		endpoint, len(results), time.Since(started).Round(time.Millisecond))
	return results, nil
}

func truncateAttribute(value string) string {
	const maxAttributeLength = 120
	trimmed := strings.TrimSpace(value)
	if len([]rune(trimmed)) <= maxAttributeLength {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:maxAttributeLength]) + "…"
}
