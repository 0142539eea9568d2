package polymarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ssarlove/polyterm/internal/domain"
)

const marketsFixture = `[
	{
		"id": "1",
		"conditionId": "0xaaa",
		"question": "Will candidate A win the election?",
		"active": true,
		"closed": false,
		"volume": "500000",
		"outcomes": "[\"Yes\",\"No\"]",
		"outcomePrices": "[\"0.55\",\"0.45\"]",
		"clobTokenIds": "[\"111\",\"222\"]"
	},
	{
		"id": "2",
		"conditionId": "0xbbb",
		"question": "Will it rain tomorrow?",
		"active": true,
		"closed": false,
		"volume": "1200",
		"outcomes": ["Yes","No"],
		"outcomePrices": ["0.10","0.90"],
		"clobTokenIds": ["333","444"]
	}
]`

func TestGammaFetchMarkets(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("path = %q, want /markets", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsFixture))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	markets, err := g.FetchMarkets(context.Background(), 20, 0, true)
	if err != nil {
		t.Fatalf("FetchMarkets: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("got %d markets, want 2", len(markets))
	}
	if markets[0].ConditionID != "0xaaa" {
		t.Errorf("first market = %q", markets[0].ConditionID)
	}
	if gotQuery != "closed=false&limit=20&offset=0" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestGammaFetchMarketsWrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets": ` + marketsFixture + `}`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	markets, err := g.FetchMarkets(context.Background(), 20, 0, false)
	if err != nil {
		t.Fatalf("FetchMarkets: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("got %d markets, want 2", len(markets))
	}
}

func TestGammaFetchMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	_, err := g.FetchMarket(context.Background(), "0xmissing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGammaUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	_, err := g.FetchMarkets(context.Background(), 20, 0, false)

	var se *domain.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Status != http.StatusInternalServerError || !se.Temporary() {
		t.Errorf("StatusError = %+v", se)
	}
	if !domain.Retryable(err) {
		t.Error("5xx not retryable")
	}
}

func TestGammaMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{{{`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	_, err := g.FetchMarkets(context.Background(), 20, 0, false)
	if !errors.Is(err, domain.ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
	if domain.Retryable(err) {
		t.Error("malformed payload marked retryable")
	}
}

func TestGammaTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	g := NewGammaClient(srv.URL, time.Second)
	_, err := g.FetchMarkets(context.Background(), 20, 0, false)
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestClobFetchOrderBookEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token_id"); got != "111" {
			t.Errorf("token_id = %q", got)
		}
		w.Write([]byte(`{"market":"0xaaa","asset_id":"111","bids":[],"asks":[],"timestamp":"1735732800000"}`))
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, time.Second)
	book, err := c.FetchOrderBook(context.Background(), "111")
	if err != nil {
		t.Fatalf("FetchOrderBook: %v", err)
	}
	if len(book.Bids) != 0 || len(book.Asks) != 0 {
		t.Errorf("book sides = %d/%d, want empty", len(book.Bids), len(book.Asks))
	}
	if book.TokenID != "111" {
		t.Errorf("TokenID = %q", book.TokenID)
	}
}

func TestClobFetchOrderBookUnknownToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no orderbook exists"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, time.Second)
	_, err := c.FetchOrderBook(context.Background(), "999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClobFetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"0.515"}`))
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, time.Second)
	price, err := c.FetchPrice(context.Background(), "111")
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.515")) {
		t.Errorf("price = %s, want 0.515", price)
	}
}

func TestClobFetchMidpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/midpoint" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"mid":"0.5"}`))
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, time.Second)
	mid, err := c.FetchMidpoint(context.Background(), "111")
	if err != nil {
		t.Fatalf("FetchMidpoint: %v", err)
	}
	if !mid.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("mid = %s, want 0.5", mid)
	}
}

func TestDataFetchPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user"); got != "0xwallet" {
			t.Errorf("user = %q", got)
		}
		if got := r.Header.Get("POLY_API_KEY"); got != "key123" {
			t.Errorf("POLY_API_KEY = %q", got)
		}
		w.Write([]byte(`[{"asset":"111","conditionId":"0xaaa","outcome":"Yes","title":"Election","size":"12.5","curPrice":"0.55"}]`))
	}))
	defer srv.Close()

	d := NewDataClient(srv.URL, time.Second, Credentials{APIKey: "key123", Address: "0xwallet"})
	positions, err := d.FetchPositions(context.Background(), "0xwallet")
	if err != nil {
		t.Fatalf("FetchPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions", len(positions))
	}
	p := positions[0]
	if !p.Size.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Size = %s", p.Size)
	}
	if v, ok := p.Value(); !ok || !v.Equal(decimal.RequireFromString("6.875")) {
		t.Errorf("Value() = %s, %v", v, ok)
	}
	if p.AvgPrice.Valid {
		t.Error("AvgPrice valid although upstream omitted it")
	}
}

func TestDataNoCredentialHeadersWhenUnconfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("POLY_API_KEY"); got != "" {
			t.Errorf("unexpected POLY_API_KEY %q on public call", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	d := NewDataClient(srv.URL, time.Second, Credentials{})
	if _, err := d.FetchPositions(context.Background(), "0xwallet"); err != nil {
		t.Fatalf("FetchPositions: %v", err)
	}
}
