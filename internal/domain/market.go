// Package domain defines the normalized, adapter-agnostic data model shared
// by the aggregation client and both front-ends, plus the error taxonomy the
// source adapters are allowed to surface.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// probabilityTolerance is how far the sum of outcome prices may drift from
// 1.0 before the market is flagged inconsistent.
var probabilityTolerance = decimal.NewFromFloat(0.02)

// Market is one prediction-market question with its outcomes. Numeric fields
// that upstream may omit are NullDecimal so absence is never conflated with
// zero volume or zero probability.
type Market struct {
	ConditionID string
	Question    string
	Slug        string
	Category    string
	Tags        []string
	Description string

	Status    MarketStatus
	Active    bool
	Closed    bool
	CreatedAt time.Time
	EndDate   *time.Time

	Volume    decimal.NullDecimal
	Liquidity decimal.NullDecimal

	// Outcomes is ordered and non-empty; binary markets carry exactly two.
	Outcomes []Outcome
}

// Outcome is one possible resolution of a Market, individually priced and
// traded. It is owned by exactly one Market.
type Outcome struct {
	TokenID string
	Label   string
	Price   decimal.NullDecimal // implied probability in [0,1]
	BestBid decimal.NullDecimal
	BestAsk decimal.NullDecimal
	Winner  bool
}

// Token returns the outcome with the given token ID, if the market owns it.
func (m *Market) Token(tokenID string) (Outcome, bool) {
	for _, o := range m.Outcomes {
		if o.TokenID == tokenID {
			return o, true
		}
	}
	return Outcome{}, false
}

// ProbabilitySum adds up all outcome prices. The second return is false when
// any outcome price is missing, in which case the sum is meaningless.
func (m *Market) ProbabilitySum() (decimal.Decimal, bool) {
	if len(m.Outcomes) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, o := range m.Outcomes {
		if !o.Price.Valid {
			return decimal.Zero, false
		}
		sum = sum.Add(o.Price.Decimal)
	}
	return sum, true
}

// ProbabilitiesConsistent reports whether all outcome prices are present and
// sum to 1.0 within tolerance. Markets with missing prices are considered
// consistent: absence is unknown, not wrong.
func (m *Market) ProbabilitiesConsistent() bool {
	sum, ok := m.ProbabilitySum()
	if !ok {
		return true
	}
	return sum.Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(probabilityTolerance)
}

// VolumeOrZero is the sorting key for volume ordering: markets with unknown
// volume sort below any known volume.
func (m *Market) VolumeOrZero() decimal.Decimal {
	if m.Volume.Valid {
		return m.Volume.Decimal
	}
	return decimal.Zero
}
