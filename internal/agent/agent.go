// Package agent implements the headless front-end: parse one operation,
// invoke the aggregation client exactly once, write one machine-readable
// JSON document, and report success or failure through the exit code. No
// interactive loop is ever entered.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ssarlove/polyterm/internal/client"
	"github.com/ssarlove/polyterm/internal/domain"
)

// Service is the slice of the aggregation client the agent needs.
type Service interface {
	ListMarkets(ctx context.Context, q client.Query) ([]domain.Market, error)
	GetMarket(ctx context.Context, conditionID string) (domain.Market, error)
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
	GetPrice(ctx context.Context, tokenID string) (domain.PriceQuote, error)
	GetPositions(ctx context.Context, address string) ([]domain.Position, error)
}

// Op selects the single operation an agent invocation performs.
type Op string

const (
	OpListMarkets Op = "list_markets"
	OpGetMarket   Op = "get_market"
	OpGetBook     Op = "get_orderbook"
	OpGetPrice    Op = "get_price"
	OpPositions   Op = "get_positions"
)

// Request is one fully parsed agent invocation.
type Request struct {
	Op          Op
	ConditionID string
	TokenID     string
	Address     string
	Query       client.Query
}

// Validate rejects malformed requests before any network activity.
func (r Request) Validate() error {
	switch r.Op {
	case OpListMarkets:
		if r.Query.Limit < 0 {
			return fmt.Errorf("%w: limit must not be negative", domain.ErrUsage)
		}
		if r.Query.Offset < 0 {
			return fmt.Errorf("%w: offset must not be negative", domain.ErrUsage)
		}
	case OpGetMarket:
		if r.ConditionID == "" {
			return fmt.Errorf("%w: market operation requires a condition id", domain.ErrUsage)
		}
	case OpGetBook, OpGetPrice:
		if r.TokenID == "" {
			return fmt.Errorf("%w: %s requires a token id", domain.ErrUsage, r.Op)
		}
	case OpPositions:
		if r.Address == "" {
			return fmt.Errorf("%w: positions operation requires a wallet address", domain.ErrUsage)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", domain.ErrUsage, r.Op)
	}
	return nil
}

// Runner executes agent requests against the aggregation client.
type Runner struct {
	svc    Service
	out    io.Writer
	logger *slog.Logger
}

// New creates a Runner writing its single result document to out.
func New(svc Service, out io.Writer, logger *slog.Logger) *Runner {
	return &Runner{
		svc:    svc,
		out:    out,
		logger: logger.With(slog.String("component", "agent")),
	}
}

// envelope is the one document an agent invocation emits.
type envelope struct {
	InvocationID string    `json:"invocation_id"`
	Op           Op        `json:"op"`
	OK           bool      `json:"ok"`
	Data         any       `json:"data,omitempty"`
	Error        *errorDoc `json:"error,omitempty"`
}

type errorDoc struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Run performs exactly one operation and returns the process exit code:
// 0 on success, 1 on any failure including usage errors. Every outcome,
// success or failure, is written as a single JSON document.
func (r *Runner) Run(ctx context.Context, req Request) int {
	id := uuid.NewString()
	logger := r.logger.With(slog.String("invocation_id", id), slog.String("op", string(req.Op)))

	if err := req.Validate(); err != nil {
		logger.Error("invalid invocation", slog.String("error", err.Error()))
		return r.fail(id, req.Op, err)
	}

	data, err := r.invoke(ctx, req)
	if err != nil {
		logger.Error("operation failed",
			slog.String("kind", domain.KindOf(err)),
			slog.String("error", err.Error()),
		)
		return r.fail(id, req.Op, err)
	}

	r.write(envelope{InvocationID: id, Op: req.Op, OK: true, Data: data})
	return 0
}

func (r *Runner) invoke(ctx context.Context, req Request) (any, error) {
	switch req.Op {
	case OpListMarkets:
		markets, err := r.svc.ListMarkets(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		return marketDocs(markets), nil
	case OpGetMarket:
		m, err := r.svc.GetMarket(ctx, req.ConditionID)
		if err != nil {
			return nil, err
		}
		return marketToDoc(m), nil
	case OpGetBook:
		book, err := r.svc.GetOrderBook(ctx, req.TokenID)
		if err != nil {
			return nil, err
		}
		return bookToDoc(book), nil
	case OpGetPrice:
		quote, err := r.svc.GetPrice(ctx, req.TokenID)
		if err != nil {
			return nil, err
		}
		return quoteToDoc(quote), nil
	case OpPositions:
		positions, err := r.svc.GetPositions(ctx, req.Address)
		if err != nil {
			return nil, err
		}
		return positionDocs(positions), nil
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrUsage, req.Op)
	}
}

// Fail emits an error document for a problem detected before an operation
// was selected, such as conflicting command-line selectors, and returns the
// process exit code.
func (r *Runner) Fail(err error) int {
	return r.fail(uuid.NewString(), "", err)
}

func (r *Runner) fail(id string, op Op, err error) int {
	r.write(envelope{
		InvocationID: id,
		Op:           op,
		OK:           false,
		Error:        &errorDoc{Kind: domain.KindOf(err), Message: err.Error()},
	})
	return 1
}

func (r *Runner) write(env envelope) {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		r.logger.Error("failed to write result document", slog.String("error", err.Error()))
	}
}
