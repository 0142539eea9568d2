package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ssarlove/polyterm/internal/domain"
)

// Credentials are the optional Polymarket API credentials. The aggregation
// core treats authenticated and public calls identically; when present the
// credentials are attached as headers, unmodified.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
	Address    string
}

// Configured reports whether enough credential material is present to send
// authenticated requests.
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.Address != ""
}

// DataClient is the REST client for the Polymarket Data API, which serves
// positions and trade history.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
}

// NewDataClient creates a new Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string, timeout time.Duration, creds Credentials) *DataClient {
	return &DataClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
		creds:      creds,
	}
}

// FetchPositions returns the holdings of the given wallet address.
func (d *DataClient) FetchPositions(ctx context.Context, address string) ([]domain.Position, error) {
	params := url.Values{}
	params.Set("user", address)

	body, err := getJSON(ctx, d.httpClient, d.baseURL, "/positions", params, d.authHeaders())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: fetch positions %s: %w", address, err)
	}

	var apiPositions []dataPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("polymarket/data: %w: decode positions: %v", domain.ErrMalformed, err)
	}

	positions := make([]domain.Position, 0, len(apiPositions))
	for i := range apiPositions {
		positions = append(positions, apiPositions[i].toDomain())
	}
	return positions, nil
}

// authHeaders builds the credential pass-through headers when credentials
// are configured; public calls carry none.
func (d *DataClient) authHeaders() http.Header {
	if !d.creds.Configured() {
		return nil
	}
	h := http.Header{}
	h.Set("POLY_ADDRESS", d.creds.Address)
	h.Set("POLY_API_KEY", d.creds.APIKey)
	if d.creds.Passphrase != "" {
		h.Set("POLY_PASSPHRASE", d.creds.Passphrase)
	}
	return h
}
