package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wikiscout/wikiscout/internal/types"
)

// ClassifyHTTPError maps a non-2xx response from the search service to a
// ClientError. The body is the already-read (and possibly truncated)
// response body.
func ClassifyHTTPError(statusCode int, header http.Header, body string, endpoint string) *types.ClientError {
	detail := errorDetail(body)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &types.ClientError{
			Type:       types.ErrorTypeRateLimit,
			Message:    "search service rate limit reached",
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: parseRetryAfter(header, 10*time.Second),
		}
	case statusCode == http.StatusRequestTimeout:
		return &types.ClientError{
			Type:       types.ErrorTypeTimeout,
			Message:    "search service timed out handling the request",
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 5 * time.Second,
		}
	case statusCode >= 500:
		return &types.ClientError{
			Type:       types.ErrorTypeServer,
			Message:    fmt.Sprintf("search service error: %s", detail),
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 10 * time.Second,
		}
	case statusCode >= 400:
		return &types.ClientError{
			Type:       types.ErrorTypeClient,
			Message:    fmt.Sprintf("search service rejected the request: %s", detail),
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Retryable:  false,
		}
	default:
		return &types.ClientError{
			Type:       types.ErrorTypeUnknown,
			Message:    fmt.Sprintf("unexpected response from search service: %s", detail),
			Endpoint:   endpoint,
			StatusCode: statusCode,
			Retryable:  false,
		}
	}
}

// ClassifyConnectionError maps a transport-level failure to a ClientError.
func ClassifyConnectionError(err error, endpoint string) *types.ClientError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.ClientError{
			Type:       types.ErrorTypeTimeout,
			Message:    "request deadline exceeded",
			Endpoint:   endpoint,
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Cause:      err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &types.ClientError{
			Type:       types.ErrorTypeTimeout,
			Message:    "connection to the search service timed out",
			Endpoint:   endpoint,
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Cause:      err,
		}
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "connection refused") {
		return &types.ClientError{
			Type:      types.ErrorTypeConnection,
			Message:   "search service refused the connection",
			Endpoint:  endpoint,
			Retryable: false,
			Cause:     err,
		}
	}
	if strings.Contains(errMsg, "no such host") {
		return &types.ClientError{
			Type:      types.ErrorTypeConnection,
			Message:   "search service host not found",
			Endpoint:  endpoint,
			Retryable: false,
			Cause:     err,
		}
	}

	return &types.ClientError{
		Type:       types.ErrorTypeConnection,
		Message:    fmt.Sprintf("connection error: %v", err),
		Endpoint:   endpoint,
		Retryable:  true,
		RetryAfter: 10 * time.Second,
		Cause:      err,
	}
}

// errorDetail extracts the detail field from a JSON error body, falling
// back to a trimmed snippet of the raw body. The search service reports
// failures as {"detail": "..."} payloads.
func errorDetail(body string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}

	snippet := strings.TrimSpace(body)
	if snippet == "" {
		return "empty response body"
	}
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return snippet
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(header http.Header, fallback time.Duration) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
