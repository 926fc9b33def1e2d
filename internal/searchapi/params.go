package searchapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wikiscout/wikiscout/internal/types"
)

const (
	queryResultsPath = "/user/query_results"
	queryRefinedPath = "/user/query_refined"
)

// SplitTerms splits a semicolon-delimited feedback string into trimmed
// terms. An empty input yields a single empty term, not an empty list.
func SplitTerms(input string) []string {
	parts := strings.Split(input, ";")
	terms := make([]string, len(parts))
	for i, part := range parts {
		terms[i] = strings.TrimSpace(part)
	}
	return terms
}

// BuildQueryRequest constructs the GET request for an initial search.
// It performs no I/O.
func BuildQueryRequest(base *url.URL, params types.QueryParameters) (*http.Request, error) {
	if base == nil {
		return nil, fmt.Errorf("base URL cannot be nil")
	}

	target := base.JoinPath(queryResultsPath)

	values := url.Values{}
	values.Set("query", norm.NFC.String(params.Query))
	values.Set("top_k", strconv.Itoa(params.TopK))
	values.Set("scrapping_total_limit", strconv.Itoa(params.ScrappingTotalLimit))
	values.Set("reuse_index", strconv.FormatBool(params.ReuseIndex))
	target.RawQuery = values.Encode()

	req, err := http.NewRequest(http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// BuildRefinementRequest constructs the GET request for a refinement.
// It performs no I/O. Positive and negative terms are encoded as repeated
// same-named parameters, one occurrence per term; joining them into a
// single delimited value would reach the service as one concatenated term.
func BuildRefinementRequest(base *url.URL, params types.RefinementParameters) (*http.Request, error) {
	if base == nil {
		return nil, fmt.Errorf("base URL cannot be nil")
	}

	target := base.JoinPath(queryRefinedPath)

	values := url.Values{}
	values.Set("top_k", strconv.Itoa(params.TopK))
	for _, term := range params.Positive {
		values.Add("positive", norm.NFC.String(term))
	}
	for _, term := range params.Negative {
		values.Add("negative", norm.NFC.String(term))
	}
	target.RawQuery = values.Encode()

	req, err := http.NewRequest(http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build refinement request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}
