package agent

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ssarlove/polyterm/internal/domain"
)

// Presentation documents for the machine-readable output. The JSON field
// names are the agent contract and stay stable even when the domain model
// moves; decimals serialize as strings so consumers never see float drift.

type marketDoc struct {
	ConditionID string       `json:"condition_id"`
	Question    string       `json:"question"`
	Slug        string       `json:"slug,omitempty"`
	Category    string       `json:"category,omitempty"`
	Status      string       `json:"status"`
	Volume      *string      `json:"volume"`
	Liquidity   *string      `json:"liquidity"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	Outcomes    []outcomeDoc `json:"outcomes"`
}

type outcomeDoc struct {
	TokenID string  `json:"token_id"`
	Label   string  `json:"label"`
	Price   *string `json:"price"`
	BestBid *string `json:"best_bid,omitempty"`
	BestAsk *string `json:"best_ask,omitempty"`
}

type bookDoc struct {
	TokenID   string     `json:"token_id"`
	Bids      []levelDoc `json:"bids"`
	Asks      []levelDoc `json:"asks"`
	FetchedAt time.Time  `json:"fetched_at"`
	Warning   string     `json:"warning,omitempty"`
}

type levelDoc struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type quoteDoc struct {
	TokenID   string    `json:"token_id"`
	Price     string    `json:"price"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

type positionDoc struct {
	TokenID      string  `json:"token_id"`
	ConditionID  string  `json:"condition_id"`
	Outcome      string  `json:"outcome"`
	Title        string  `json:"title"`
	Size         string  `json:"size"`
	AvgPrice     *string `json:"avg_price"`
	CurrentPrice *string `json:"current_price"`
	CashPnL      *string `json:"cash_pnl"`
	Redeemable   bool    `json:"redeemable"`
}

// optStr renders a nullable decimal: nil means the upstream omitted the
// field, which is different from "0".
func optStr(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func marketToDoc(m domain.Market) marketDoc {
	doc := marketDoc{
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Slug:        m.Slug,
		Category:    m.Category,
		Status:      string(m.Status),
		Volume:      optStr(m.Volume),
		Liquidity:   optStr(m.Liquidity),
		EndDate:     m.EndDate,
		Outcomes:    make([]outcomeDoc, 0, len(m.Outcomes)),
	}
	if !m.CreatedAt.IsZero() {
		t := m.CreatedAt
		doc.CreatedAt = &t
	}
	for _, o := range m.Outcomes {
		doc.Outcomes = append(doc.Outcomes, outcomeDoc{
			TokenID: o.TokenID,
			Label:   o.Label,
			Price:   optStr(o.Price),
			BestBid: optStr(o.BestBid),
			BestAsk: optStr(o.BestAsk),
		})
	}
	return doc
}

func marketDocs(markets []domain.Market) []marketDoc {
	docs := make([]marketDoc, 0, len(markets))
	for _, m := range markets {
		docs = append(docs, marketToDoc(m))
	}
	return docs
}

func bookToDoc(b domain.OrderBook) bookDoc {
	doc := bookDoc{
		TokenID:   b.TokenID,
		Bids:      make([]levelDoc, 0, len(b.Bids)),
		Asks:      make([]levelDoc, 0, len(b.Asks)),
		FetchedAt: b.FetchedAt,
		Warning:   b.Warning,
	}
	for _, l := range b.Bids {
		doc.Bids = append(doc.Bids, levelDoc{Price: l.Price.String(), Size: l.Size.String()})
	}
	for _, l := range b.Asks {
		doc.Asks = append(doc.Asks, levelDoc{Price: l.Price.String(), Size: l.Size.String()})
	}
	return doc
}

func quoteToDoc(q domain.PriceQuote) quoteDoc {
	return quoteDoc{
		TokenID:   q.TokenID,
		Price:     q.Price.String(),
		Source:    string(q.Source),
		FetchedAt: q.FetchedAt,
	}
}

func positionDocs(positions []domain.Position) []positionDoc {
	docs := make([]positionDoc, 0, len(positions))
	for _, p := range positions {
		docs = append(docs, positionDoc{
			TokenID:      p.TokenID,
			ConditionID:  p.ConditionID,
			Outcome:      p.Outcome,
			Title:        p.Title,
			Size:         p.Size.String(),
			AvgPrice:     optStr(p.AvgPrice),
			CurrentPrice: optStr(p.CurrentPrice),
			CashPnL:      optStr(p.CashPnL),
			Redeemable:   p.Redeemable,
		})
	}
	return docs
}
