package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is the direction of a market order, as spelled on the wire.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the counter side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Order is a market order expressed in USD notional.
type Order struct {
	Side Side
	USD  decimal.Decimal
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s USD", o.Side, o.USD.StringFixed(2))
}

// TradeRecord is a single row of the append-only trade history owned by the
// server. The client only reads it.
type TradeRecord struct {
	ID        int64           `json:"id"`
	Time      int64           `json:"ts"`
	Side      Side            `json:"side"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Notional  decimal.Decimal `json:"notional"`
	Fee       decimal.Decimal `json:"fee"`
	CashAfter decimal.Decimal `json:"cash_after"`
	PosAfter  decimal.Decimal `json:"pos_after"`
}
