package polymarket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ssarlove/polyterm/internal/domain"
)

// DefaultTimeout bounds every upstream request when the caller does not
// configure one. No call is allowed to block indefinitely.
const DefaultTimeout = 10 * time.Second

// newHTTPClient builds the per-adapter HTTP client. The timeout covers the
// whole round trip, including body read.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON issues a GET against base+path with the given query parameters and
// extra headers, and returns the raw response body. All failures are mapped
// into the domain error taxonomy:
//
//	network error / timeout      -> domain.ErrTransport
//	HTTP 404                     -> domain.ErrNotFound
//	HTTP 429                     -> domain.ErrRateLimited
//	other non-2xx                -> *domain.StatusError
//
// Adapters never retry; the aggregation client owns retry policy.
func getJSON(ctx context.Context, hc *http.Client, base, path string, params url.Values, header http.Header) ([]byte, error) {
	u := strings.TrimRight(base, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrTransport, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to taxonomy errors, preserving
// upstream-provided detail in the error text.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	detail := strings.TrimSpace(string(body))
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, detail)
	default:
		return &domain.StatusError{Status: statusCode, Body: detail}
	}
}
