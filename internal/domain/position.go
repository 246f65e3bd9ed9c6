package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Direction represents the directional view of a signed position.
type Direction int

const (
	// DirectionFlat means the position is closed (|pos| below the dust threshold).
	DirectionFlat Direction = iota
	// DirectionLong means a positive position.
	DirectionLong
	// DirectionShort means a negative position.
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "LONG"
	case DirectionShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// flatEpsilon mirrors the server's dust threshold: positions smaller than
// this count as closed.
var flatEpsilon = decimal.New(1, -12)

// ErrFlatPosition is returned when a closing order is requested for a
// position that is already flat.
var ErrFlatPosition = errors.New("position is flat, nothing to close")

// PositionSnapshot is the account state returned by /api/me. Every poll
// yields a fresh snapshot; snapshots are never mutated in place.
type PositionSnapshot struct {
	Code          string          `json:"code"`
	Nick          string          `json:"nick"`
	Cash          decimal.Decimal `json:"cash"`
	Equity        decimal.Decimal `json:"equity"`
	Pos           decimal.Decimal `json:"pos"`
	Price         decimal.Decimal `json:"price"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	PnLUnrealized decimal.Decimal `json:"pnl_unrealized"`
	PnLRealized   decimal.Decimal `json:"pnl_realized"`
	PnLTotal      decimal.Decimal `json:"pnl_total"`
}

// Classify partitions a signed position quantity into a direction and an
// absolute size. Size is zero for flat positions.
func Classify(pos decimal.Decimal) (Direction, decimal.Decimal) {
	size := pos.Abs()
	if size.LessThan(flatEpsilon) {
		return DirectionFlat, decimal.Zero
	}
	if pos.IsPositive() {
		return DirectionLong, size
	}
	return DirectionShort, size
}

// Direction returns the directional view of the snapshot's position.
func (s PositionSnapshot) Direction() Direction {
	d, _ := Classify(s.Pos)
	return d
}

// SignedDisplay splits an amount into a sign prefix and a non-negative
// magnitude. Zero counts as non-negative. Used uniformly for unrealized,
// realized and total PnL.
func SignedDisplay(amount decimal.Decimal) (string, decimal.Decimal) {
	if amount.IsNegative() {
		return "-", amount.Abs()
	}
	return "+", amount
}

// ClosingOrder derives the market order that flattens the snapshot's
// position: the counter side for the full notional at the last known mark
// price. It does not execute anything.
func ClosingOrder(s PositionSnapshot) (Order, error) {
	dir, size := Classify(s.Pos)
	switch dir {
	case DirectionLong:
		return Order{Side: SideSell, USD: size.Mul(s.Price)}, nil
	case DirectionShort:
		return Order{Side: SideBuy, USD: size.Mul(s.Price)}, nil
	default:
		return Order{}, ErrFlatPosition
	}
}
