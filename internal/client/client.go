// Package client implements the aggregation client: one stable facade over
// the three Polymarket source adapters. It owns the concerns the adapters
// must not have: retry with backoff on transient failures, response
// caching within a freshness window, and stable market ordering. Both
// front-ends therefore see the same model no matter
// which upstream service answered.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/ssarlove/polyterm/internal/cache"
	"github.com/ssarlove/polyterm/internal/domain"
)

// MarketSource is the market discovery/metadata adapter (Gamma).
type MarketSource interface {
	FetchMarkets(ctx context.Context, limit, offset int, activeOnly bool) ([]domain.Market, error)
	FetchMarket(ctx context.Context, conditionID string) (domain.Market, error)
}

// BookSource is the order book and pricing adapter (CLOB).
type BookSource interface {
	FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
	FetchPrice(ctx context.Context, tokenID string) (decimal.Decimal, error)
	FetchMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// PositionSource is the positions/history adapter (Data API).
type PositionSource interface {
	FetchPositions(ctx context.Context, address string) ([]domain.Position, error)
}

// Query selects and pages markets for ListMarkets. The text filter is a
// case-insensitive substring match over question and category, applied
// client-side because the upstream listing has no search parameter.
type Query struct {
	Filter     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Cache       cache.Cache
	TTL         time.Duration // cache freshness window
	MaxRetries  int           // retries after the first attempt
	BackoffBase time.Duration
	Logger      *slog.Logger
}

const (
	defaultTTL         = 15 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = 200 * time.Millisecond

	// scanLimit is how many markets are pulled upstream when a text filter
	// forces client-side matching over an unsearchable listing.
	scanLimit = 250

	defaultListLimit = 20
)

// Client composes the three source adapters behind the domain operations.
// It is safe for concurrent use; cache entries are replaced atomically and
// singleflight collapses concurrent identical lookups.
type Client struct {
	markets   MarketSource
	books     BookSource
	positions PositionSource

	cache       cache.Cache
	ttl         time.Duration
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger

	group *singleflight.Group

	// bypass skips cache reads (writes still happen) for explicit refresh
	// requests; see Fresh.
	bypass bool

	// sleep is swappable so retry tests run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client over the given adapters.
func New(markets MarketSource, books BookSource, positions PositionSource, opts Options) *Client {
	c := &Client{
		markets:     markets,
		books:       books,
		positions:   positions,
		cache:       opts.Cache,
		ttl:         opts.TTL,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		logger:      opts.Logger,
		group:       new(singleflight.Group),
		sleep:       sleepCtx,
	}
	if c.cache == nil {
		c.cache = cache.NewMemory()
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("component", "client"))
	return c
}

// Fresh returns a view of the client that bypasses cache reads, for explicit
// refresh requests. Responses still repopulate the cache.
func (c *Client) Fresh() *Client {
	cp := *c
	cp.bypass = true
	return &cp
}

// ListMarkets returns markets matching q in a stable order: descending
// volume, condition ID as tie-break. Repeated calls with an identical query
// inside the freshness window are served from cache without a network call.
func (c *Client) ListMarkets(ctx context.Context, q Query) ([]domain.Market, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrUsage)
	}

	key := fmt.Sprintf("markets|f=%s|a=%t|l=%d|o=%d",
		strings.ToLower(q.Filter), q.ActiveOnly, q.Limit, q.Offset)

	var out []domain.Market
	err := c.cached(ctx, key, &out, func(ctx context.Context) (any, error) {
		fetchLimit := q.Limit + q.Offset
		if q.Filter != "" && fetchLimit < scanLimit {
			fetchLimit = scanLimit
		}

		var markets []domain.Market
		err := c.withRetry(ctx, "list_markets", func(ctx context.Context) error {
			var err error
			markets, err = c.markets.FetchMarkets(ctx, fetchLimit, 0, q.ActiveOnly)
			return err
		})
		if err != nil {
			return nil, err
		}

		markets = filterMarkets(markets, q.Filter, q.ActiveOnly)
		sortMarkets(markets)
		return pageMarkets(markets, q.Limit, q.Offset), nil
	})
	return out, err
}

// GetMarket returns a single market by condition ID.
func (c *Client) GetMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	var out domain.Market
	err := c.cached(ctx, "market|"+conditionID, &out, func(ctx context.Context) (any, error) {
		var m domain.Market
		err := c.withRetry(ctx, "get_market", func(ctx context.Context) error {
			var err error
			m, err = c.markets.FetchMarket(ctx, conditionID)
			return err
		})
		return m, err
	})
	return out, err
}

// GetOrderBook returns the current book snapshot for a token. An empty book
// is a success: "no liquidity" is not "lookup failed". A crossed snapshot is
// surfaced with its warning intact.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	var out domain.OrderBook
	err := c.cached(ctx, "book|"+tokenID, &out, func(ctx context.Context) (any, error) {
		var book domain.OrderBook
		err := c.withRetry(ctx, "get_orderbook", func(ctx context.Context) error {
			var err error
			book, err = c.books.FetchOrderBook(ctx, tokenID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if book.Warning != "" {
			c.logger.Warn("suspect order book",
				slog.String("token_id", tokenID),
				slog.String("warning", book.Warning),
			)
		}
		return book, nil
	})
	return out, err
}

// GetPrice returns the current price of a token. It prefers the dedicated
// price endpoint and falls back silently to the midpoint endpoint, then to
// the book midpoint; the quote records which source answered (diagnostics
// only).
func (c *Client) GetPrice(ctx context.Context, tokenID string) (domain.PriceQuote, error) {
	var out domain.PriceQuote
	err := c.cached(ctx, "price|"+tokenID, &out, func(ctx context.Context) (any, error) {
		quote, err := c.fetchPrice(ctx, tokenID)
		return quote, err
	})
	return out, err
}

func (c *Client) fetchPrice(ctx context.Context, tokenID string) (domain.PriceQuote, error) {
	var price decimal.Decimal
	err := c.withRetry(ctx, "get_price", func(ctx context.Context) error {
		var err error
		price, err = c.books.FetchPrice(ctx, tokenID)
		return err
	})
	if err == nil {
		return domain.PriceQuote{TokenID: tokenID, Price: price, Source: domain.PriceSourcePrice, FetchedAt: time.Now()}, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		// The price endpoint knows the token set; absence there is final.
		return domain.PriceQuote{}, err
	}
	c.logger.Debug("price endpoint unavailable, trying midpoint",
		slog.String("token_id", tokenID),
		slog.String("error", err.Error()),
	)

	err = c.withRetry(ctx, "get_midpoint", func(ctx context.Context) error {
		var err error
		price, err = c.books.FetchMidpoint(ctx, tokenID)
		return err
	})
	if err == nil {
		return domain.PriceQuote{TokenID: tokenID, Price: price, Source: domain.PriceSourceMidpoint, FetchedAt: time.Now()}, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PriceQuote{}, err
	}
	c.logger.Debug("midpoint endpoint unavailable, deriving from book",
		slog.String("token_id", tokenID),
		slog.String("error", err.Error()),
	)

	var book domain.OrderBook
	err = c.withRetry(ctx, "get_orderbook", func(ctx context.Context) error {
		var err error
		book, err = c.books.FetchOrderBook(ctx, tokenID)
		return err
	})
	if err != nil {
		return domain.PriceQuote{}, err
	}
	mid, ok := book.Midpoint()
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("client: no price for token %s: %w", tokenID, domain.ErrNotFound)
	}
	return domain.PriceQuote{TokenID: tokenID, Price: mid, Source: domain.PriceSourceBook, FetchedAt: time.Now()}, nil
}

// GetPositions returns the holdings of a wallet address.
func (c *Client) GetPositions(ctx context.Context, address string) ([]domain.Position, error) {
	var out []domain.Position
	err := c.cached(ctx, "positions|"+strings.ToLower(address), &out, func(ctx context.Context) (any, error) {
		var positions []domain.Position
		err := c.withRetry(ctx, "get_positions", func(ctx context.Context) error {
			var err error
			positions, err = c.positions.FetchPositions(ctx, address)
			return err
		})
		return positions, err
	})
	return out, err
}

// --------------------------------------------------------------------------
// Caching and retry machinery
// --------------------------------------------------------------------------

// cached serves dst from the cache when a fresh entry exists, otherwise runs
// fetch (collapsed across concurrent identical keys), stores the serialized
// result, and decodes it into dst. Errors are never cached.
func (c *Client) cached(ctx context.Context, key string, dst any, fetch func(ctx context.Context) (any, error)) error {
	if !c.bypass {
		if raw, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if err := json.Unmarshal(raw, dst); err == nil {
				return nil
			}
			// A stale schema in a shared cache is not fatal; refetch.
			c.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
		} else if err != nil {
			c.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s: %w", key, err)
		}
		if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
			c.logger.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dst)
}

// withRetry runs fn, retrying transient failures up to the configured bound
// with exponential backoff and jitter. Non-retryable failure classes
// propagate immediately.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.Retryable(err) || attempt >= c.maxRetries {
			return err
		}

		delay := c.backoffBase << attempt
		delay += time.Duration(rand.Int63n(int64(c.backoffBase)))
		c.logger.Warn("transient failure, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// --------------------------------------------------------------------------
// ListMarkets normalization
// --------------------------------------------------------------------------

func filterMarkets(markets []domain.Market, filter string, activeOnly bool) []domain.Market {
	needle := strings.ToLower(strings.TrimSpace(filter))
	out := markets[:0]
	for _, m := range markets {
		if activeOnly && m.Status != domain.MarketStatusActive {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(m.Question), needle) &&
			!strings.Contains(strings.ToLower(m.Category), needle) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func sortMarkets(markets []domain.Market) {
	sort.SliceStable(markets, func(i, j int) bool {
		vi, vj := markets[i].VolumeOrZero(), markets[j].VolumeOrZero()
		if !vi.Equal(vj) {
			return vi.GreaterThan(vj)
		}
		return markets[i].ConditionID < markets[j].ConditionID
	})
}

func pageMarkets(markets []domain.Market, limit, offset int) []domain.Market {
	if offset >= len(markets) {
		return []domain.Market{}
	}
	markets = markets[offset:]
	if limit < len(markets) {
		markets = markets[:limit]
	}
	return markets
}
