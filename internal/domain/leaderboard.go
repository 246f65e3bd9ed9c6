package domain

import "github.com/shopspring/decimal"

// LeaderboardEntry is one ranked row of /api/leaderboard, ordered by equity
// on the server side.
type LeaderboardEntry struct {
	Nick   string          `json:"nick"`
	Equity decimal.Decimal `json:"equity"`
	PnL    decimal.Decimal `json:"pnl"`
	Pos    decimal.Decimal `json:"pos"`
	Cash   decimal.Decimal `json:"cash"`
}
