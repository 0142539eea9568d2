package domain

import "github.com/shopspring/decimal"

// Position is a holding reported by the Data API for one wallet address.
type Position struct {
	TokenID      string
	ConditionID  string
	Outcome      string
	Title        string
	Size         decimal.Decimal
	AvgPrice     decimal.NullDecimal
	CurrentPrice decimal.NullDecimal
	CashPnL      decimal.NullDecimal
	Redeemable   bool
}

// Value is the mark-to-market value of the position, when the current price
// is known.
func (p *Position) Value() (decimal.Decimal, bool) {
	if !p.CurrentPrice.Valid {
		return decimal.Decimal{}, false
	}
	return p.Size.Mul(p.CurrentPrice.Decimal), true
}
