package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ssarlove/polyterm/internal/domain"
)

// ClobClient is the read-only REST client for the Polymarket CLOB (Central
// Limit Order Book) API: order book snapshots and current prices.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, timeout time.Duration) *ClobClient {
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout),
	}
}

// FetchOrderBook returns the current book snapshot for a token. A token with
// no resting orders yields a book with empty sides, not an error.
func (c *ClobClient) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := getJSON(ctx, c.httpClient, c.baseURL, "/book", params, nil)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: fetch book %s: %w", tokenID, err)
	}

	var apiBook clobBook
	if err := json.Unmarshal(body, &apiBook); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: %w: decode book: %v", domain.ErrMalformed, err)
	}

	book, err := apiBook.toDomain(tokenID)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket/clob: book %s: %w", tokenID, err)
	}
	return book, nil
}

// FetchPrice returns the current price from the dedicated /price endpoint.
func (c *ClobClient) FetchPrice(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := getJSON(ctx, c.httpClient, c.baseURL, "/price", params, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket/clob: fetch price %s: %w", tokenID, err)
	}

	var apiPrice clobPrice
	if err := json.Unmarshal(body, &apiPrice); err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket/clob: %w: decode price: %v", domain.ErrMalformed, err)
	}
	price, err := decimal.NewFromString(apiPrice.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket/clob: %w: price %q: %v", domain.ErrMalformed, apiPrice.Price, err)
	}
	return price, nil
}

// FetchMidpoint returns the bid/ask midpoint from the /midpoint endpoint,
// the first fallback when /price is unavailable.
func (c *ClobClient) FetchMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := getJSON(ctx, c.httpClient, c.baseURL, "/midpoint", params, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket/clob: fetch midpoint %s: %w", tokenID, err)
	}

	var apiMid clobMidpoint
	if err := json.Unmarshal(body, &apiMid); err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket/clob: %w: decode midpoint: %v", domain.ErrMalformed, err)
	}
	mid, err := decimal.NewFromString(apiMid.Mid)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket/clob: %w: midpoint %q: %v", domain.ErrMalformed, apiMid.Mid, err)
	}
	return mid, nil
}
