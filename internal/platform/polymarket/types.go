package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ssarlove/polyterm/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// jsonStrings handles the Gamma API habit of double-encoding arrays: some
// fields arrive as `["Yes","No"]`, others as the string `"[\"Yes\",\"No\"]"`.
type jsonStrings []string

func (j *jsonStrings) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*j = direct
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*j = nil
		return nil
	}
	return json.Unmarshal([]byte(s), (*[]string)(j))
}

// nullDecimal is a decimal that tolerates the three upstream spellings of a
// number (raw, quoted, missing/null/empty) while keeping absence distinct
// from zero. A value that is present but unparseable is a contract violation.
type nullDecimal struct {
	decimal.NullDecimal
}

func (n *nullDecimal) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		n.Valid = false
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: decimal %q: %v", domain.ErrMalformed, s, err)
	}
	n.Decimal = d
	n.Valid = true
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// gammaMarket is a market as returned by the Gamma API /markets endpoint.
// Outcome labels, prices, and token IDs arrive as parallel arrays.
type gammaMarket struct {
	ID                  string      `json:"id"`
	ConditionID         string      `json:"conditionId"`
	Question            string      `json:"question"`
	Slug                string      `json:"slug"`
	Category            string      `json:"category"`
	Description         string      `json:"description"`
	Active              flexBool    `json:"active"`
	Closed              flexBool    `json:"closed"`
	UMAResolutionStatus string      `json:"umaResolutionStatus"`
	Volume              nullDecimal `json:"volume"`
	Liquidity           nullDecimal `json:"liquidity"`
	CreatedAt           string      `json:"createdAt"`
	EndDate             string      `json:"endDate"`
	Outcomes            jsonStrings `json:"outcomes"`
	OutcomePrices       jsonStrings `json:"outcomePrices"`
	ClobTokenIDs        jsonStrings `json:"clobTokenIds"`
	BestBid             nullDecimal `json:"bestBid"`
	BestAsk             nullDecimal `json:"bestAsk"`
}

// toDomain converts a Gamma market into the normalized model. Parallel
// outcome arrays are zipped up to the shortest length; a market without
// outcome labels defaults to binary Yes/No so the Outcomes invariant holds.
func (g *gammaMarket) toDomain() domain.Market {
	m := domain.Market{
		ConditionID: g.ConditionID,
		Question:    g.Question,
		Slug:        g.Slug,
		Category:    g.Category,
		Description: g.Description,
		Active:      bool(g.Active),
		Closed:      bool(g.Closed),
		Volume:      g.Volume.NullDecimal,
		Liquidity:   g.Liquidity.NullDecimal,
	}
	if m.ConditionID == "" {
		m.ConditionID = g.ID
	}

	switch {
	case bool(g.Closed) && strings.EqualFold(g.UMAResolutionStatus, "resolved"):
		m.Status = domain.MarketStatusResolved
	case bool(g.Closed):
		m.Status = domain.MarketStatusClosed
	default:
		m.Status = domain.MarketStatusActive
	}

	if t, err := time.Parse(time.RFC3339, g.CreatedAt); err == nil {
		m.CreatedAt = t
	}
	if g.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, g.EndDate); err == nil {
			m.EndDate = &t
		}
	}

	labels := []string(g.Outcomes)
	if len(labels) == 0 {
		labels = []string{"Yes", "No"}
	}
	for i, label := range labels {
		o := domain.Outcome{Label: label}
		if i < len(g.ClobTokenIDs) {
			o.TokenID = g.ClobTokenIDs[i]
		}
		if i < len(g.OutcomePrices) {
			if d, err := decimal.NewFromString(g.OutcomePrices[i]); err == nil {
				o.Price = decimal.NullDecimal{Decimal: d, Valid: true}
			}
		}
		// Gamma only reports a top-of-book quote for the first outcome.
		if i == 0 {
			o.BestBid = g.BestBid.NullDecimal
			o.BestAsk = g.BestAsk.NullDecimal
		}
		m.Outcomes = append(m.Outcomes, o)
	}

	return m
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// clobLevel is one price level in a CLOB book response. Both fields are
// decimal strings on the wire.
type clobLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobBook is the /book response for a single token.
type clobBook struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Timestamp string      `json:"timestamp"`
	Hash      string      `json:"hash"`
	Bids      []clobLevel `json:"bids"`
	Asks      []clobLevel `json:"asks"`
}

// toDomain converts a CLOB book into an OrderBook, normalizing level order
// (bids descending, asks ascending; the API does not guarantee either) and
// parsing every price/size exactly. A crossed book is annotated, not
// rejected.
func (b *clobBook) toDomain(tokenID string) (domain.OrderBook, error) {
	book := domain.OrderBook{
		TokenID:   tokenID,
		Bids:      make([]domain.Level, 0, len(b.Bids)),
		Asks:      make([]domain.Level, 0, len(b.Asks)),
		FetchedAt: parseBookTimestamp(b.Timestamp),
	}

	for _, l := range b.Bids {
		lvl, err := parseLevel(l)
		if err != nil {
			return domain.OrderBook{}, fmt.Errorf("bid level: %w", err)
		}
		book.Bids = append(book.Bids, lvl)
	}
	for _, l := range b.Asks {
		lvl, err := parseLevel(l)
		if err != nil {
			return domain.OrderBook{}, fmt.Errorf("ask level: %w", err)
		}
		book.Asks = append(book.Asks, lvl)
	}

	sortLevels(book.Bids, true)
	sortLevels(book.Asks, false)

	if book.Crossed() {
		bid, _ := book.BestBid()
		ask, _ := book.BestAsk()
		book.Warning = fmt.Sprintf("crossed book: best bid %s >= best ask %s", bid.Price, ask.Price)
	}

	return book, nil
}

func parseLevel(l clobLevel) (domain.Level, error) {
	price, err := decimal.NewFromString(l.Price)
	if err != nil {
		return domain.Level{}, fmt.Errorf("%w: price %q: %v", domain.ErrMalformed, l.Price, err)
	}
	size, err := decimal.NewFromString(l.Size)
	if err != nil {
		return domain.Level{}, fmt.Errorf("%w: size %q: %v", domain.ErrMalformed, l.Size, err)
	}
	return domain.Level{Price: price, Size: size}, nil
}

// parseBookTimestamp accepts the millisecond-epoch strings the CLOB sends
// today and the RFC3339 form older responses used. Unparseable timestamps
// fall back to the fetch time.
func parseBookTimestamp(s string) time.Time {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}

func sortLevels(levels []domain.Level, descending bool) {
	// Insertion sort; books are shallow and often already ordered.
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0; j-- {
			less := levels[j].Price.LessThan(levels[j-1].Price)
			if descending {
				if !levels[j].Price.GreaterThan(levels[j-1].Price) {
					break
				}
			} else if !less {
				break
			}
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}

// clobPrice is the /price response.
type clobPrice struct {
	Price string `json:"price"`
}

// clobMidpoint is the /midpoint response.
type clobMidpoint struct {
	Mid string `json:"mid"`
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// dataPosition is one holding as returned by the Data API /positions
// endpoint.
type dataPosition struct {
	Asset       string      `json:"asset"`
	ConditionID string      `json:"conditionId"`
	Outcome     string      `json:"outcome"`
	Title       string      `json:"title"`
	Size        nullDecimal `json:"size"`
	AvgPrice    nullDecimal `json:"avgPrice"`
	CurPrice    nullDecimal `json:"curPrice"`
	CashPnL     nullDecimal `json:"cashPnl"`
	Redeemable  bool        `json:"redeemable"`
}

func (p *dataPosition) toDomain() domain.Position {
	pos := domain.Position{
		TokenID:      p.Asset,
		ConditionID:  p.ConditionID,
		Outcome:      p.Outcome,
		Title:        p.Title,
		AvgPrice:     p.AvgPrice.NullDecimal,
		CurrentPrice: p.CurPrice.NullDecimal,
		CashPnL:      p.CashPnL.NullDecimal,
		Redeemable:   p.Redeemable,
	}
	if p.Size.Valid {
		pos.Size = p.Size.Decimal
	}
	return pos
}
