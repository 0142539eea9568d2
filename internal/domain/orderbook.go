package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Level is a single price+size entry in an order book.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is a point-in-time snapshot of resting orders for one token.
// Bids are ordered by descending price, asks by ascending price. Both sides
// may be empty: a valid token with no liquidity is a success, not an error.
type OrderBook struct {
	TokenID   string
	Bids      []Level
	Asks      []Level
	FetchedAt time.Time

	// Warning is set when the snapshot is usable but suspect, e.g. a
	// crossed book. It never causes the fetch to fail.
	Warning string
}

// BestBid returns the highest resting bid.
func (b *OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest resting ask.
func (b *OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Crossed reports whether the best bid meets or exceeds the best ask. A
// crossed book is a data-quality problem on the upstream side; callers
// annotate it via Warning rather than rejecting the snapshot.
func (b *OrderBook) Crossed() bool {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	return okB && okA && bid.Price.GreaterThanOrEqual(ask.Price)
}

// Midpoint derives the bid/ask midpoint. It is only defined when both sides
// are non-empty.
func (b *OrderBook) Midpoint() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Spread is best ask minus best bid, defined only when both sides are
// non-empty. Negative on a crossed book.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// PriceSource identifies which upstream endpoint ultimately answered a price
// query. Diagnostics only; not part of the user-visible result unless asked.
type PriceSource string

const (
	PriceSourcePrice    PriceSource = "price"
	PriceSourceMidpoint PriceSource = "midpoint"
	PriceSourceBook     PriceSource = "book"
)

// PriceQuote is the current price of a token together with the source that
// produced it.
type PriceQuote struct {
	TokenID   string
	Price     decimal.Decimal
	Source    PriceSource
	FetchedAt time.Time
}
