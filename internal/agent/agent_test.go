package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ssarlove/polyterm/internal/client"
	"github.com/ssarlove/polyterm/internal/domain"
)

type stubService struct {
	listCalls int
	markets   []domain.Market
	market    domain.Market
	book      domain.OrderBook
	quote     domain.PriceQuote
	positions []domain.Position
	err       error
}

func (s *stubService) ListMarkets(ctx context.Context, q client.Query) ([]domain.Market, error) {
	s.listCalls++
	return s.markets, s.err
}

func (s *stubService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	return s.market, s.err
}

func (s *stubService) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	return s.book, s.err
}

func (s *stubService) GetPrice(ctx context.Context, tokenID string) (domain.PriceQuote, error) {
	return s.quote, s.err
}

func (s *stubService) GetPositions(ctx context.Context, address string) ([]domain.Position, error) {
	return s.positions, s.err
}

func run(t *testing.T, svc *stubService, req Request) (map[string]any, int) {
	t.Helper()
	var buf bytes.Buffer
	r := New(svc, &buf, slog.New(slog.NewTextHandler(io.Discard, nil)))

	code := r.Run(context.Background(), req)

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not a single JSON document: %v\n%s", err, buf.String())
	}
	return doc, code
}

func TestRunListMarkets(t *testing.T) {
	svc := &stubService{markets: []domain.Market{{
		ConditionID: "0xaaa",
		Question:    "Will it happen?",
		Status:      domain.MarketStatusActive,
		Volume:      decimal.NullDecimal{Decimal: decimal.RequireFromString("42.5"), Valid: true},
		Outcomes:    []domain.Outcome{{TokenID: "111", Label: "Yes"}},
	}}}

	doc, code := run(t, svc, Request{Op: OpListMarkets, Query: client.Query{Limit: 5}})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if ok, _ := doc["ok"].(bool); !ok {
		t.Fatalf("ok = %v, want true", doc["ok"])
	}
	data, _ := doc["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("data = %v", doc["data"])
	}
	first, _ := data[0].(map[string]any)
	if first["condition_id"] != "0xaaa" {
		t.Errorf("condition_id = %v", first["condition_id"])
	}
	if first["volume"] != "42.5" {
		t.Errorf("volume = %v, want string \"42.5\"", first["volume"])
	}
	if doc["invocation_id"] == "" {
		t.Error("missing invocation_id")
	}
}

func TestRunPriceUnknownToken(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("clob: token 999: %w", domain.ErrNotFound)}

	doc, code := run(t, svc, Request{Op: OpGetPrice, TokenID: "999"})
	if code == 0 {
		t.Fatal("exit code = 0, want non-zero")
	}
	errObj, _ := doc["error"].(map[string]any)
	if errObj == nil {
		t.Fatalf("no error object in %v", doc)
	}
	if errObj["kind"] != domain.KindNotFound {
		t.Errorf("kind = %v, want %q", errObj["kind"], domain.KindNotFound)
	}
	if errObj["message"] == "" {
		t.Error("error message empty")
	}
}

func TestRunUsageErrorBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"unknown op", Request{Op: "dance"}},
		{"market without id", Request{Op: OpGetMarket}},
		{"price without token", Request{Op: OpGetPrice}},
		{"positions without address", Request{Op: OpPositions}},
		{"negative limit", Request{Op: OpListMarkets, Query: client.Query{Limit: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			doc, code := run(t, svc, tt.req)
			if code == 0 {
				t.Error("exit code = 0, want non-zero")
			}
			if svc.listCalls != 0 {
				t.Error("network operation invoked for an invalid request")
			}
			errObj, _ := doc["error"].(map[string]any)
			if errObj == nil || errObj["kind"] != domain.KindUsage {
				t.Errorf("error = %v, want usage kind", doc["error"])
			}
		})
	}
}

func TestRunOrderBookEmptySides(t *testing.T) {
	svc := &stubService{book: domain.OrderBook{TokenID: "111"}}

	doc, code := run(t, svc, Request{Op: OpGetBook, TokenID: "111"})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0 for an empty book", code)
	}
	data, _ := doc["data"].(map[string]any)
	bids, bidsOK := data["bids"].([]any)
	if !bidsOK || len(bids) != 0 {
		t.Errorf("bids = %v, want present-and-empty", data["bids"])
	}
}

func TestRunUpstreamFailure(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("gamma: %w", &domain.StatusError{Status: 502, Body: "bad gateway"})}

	doc, code := run(t, svc, Request{Op: OpListMarkets})
	if code == 0 {
		t.Fatal("exit code = 0, want non-zero")
	}
	errObj, _ := doc["error"].(map[string]any)
	if errObj["kind"] != domain.KindUpstream {
		t.Errorf("kind = %v, want upstream", errObj["kind"])
	}
}
