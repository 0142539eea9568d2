// Package polymarket holds the REST clients for the three Polymarket
// services: Gamma (market discovery and metadata), CLOB (order books and
// pricing), and the Data API (positions). Each client maps upstream shapes
// into the shared domain model and surfaces only taxonomy errors; retry and
// caching policy live with the aggregation client, never here.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ssarlove/polyterm/internal/domain"
)

// GammaClient is the REST client for the Gamma API, which provides market
// discovery and metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
	}
}

// FetchMarkets returns a page of markets. When activeOnly is set, closed
// markets are filtered upstream.
func (g *GammaClient) FetchMarkets(ctx context.Context, limit, offset int, activeOnly bool) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if activeOnly {
		params.Set("closed", "false")
	}

	body, err := getJSON(ctx, g.httpClient, g.baseURL, "/markets", params, nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: fetch markets: %w", err)
	}

	apiMarkets, err := decodeMarketList(body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].toDomain())
	}
	return markets, nil
}

// FetchMarket returns a single market looked up by its condition ID. An
// empty result page means the ID does not exist.
func (g *GammaClient) FetchMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	params := url.Values{}
	params.Set("condition_ids", conditionID)

	body, err := getJSON(ctx, g.httpClient, g.baseURL, "/markets", params, nil)
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: fetch market %s: %w", conditionID, err)
	}

	apiMarkets, err := decodeMarketList(body)
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: market %s: %w", conditionID, domain.ErrNotFound)
	}

	return apiMarkets[0].toDomain(), nil
}

// decodeMarketList accepts the two shapes the Gamma API has shipped for
// market listings: a bare array, or an object wrapping the array under
// "markets" or "data".
func decodeMarketList(body []byte) ([]gammaMarket, error) {
	var direct []gammaMarket
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Markets []gammaMarket `json:"markets"`
		Data    []gammaMarket `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: decode market list: %v", domain.ErrMalformed, err)
	}
	if wrapped.Markets != nil {
		return wrapped.Markets, nil
	}
	return wrapped.Data, nil
}
