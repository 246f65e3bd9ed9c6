package internal

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradearena/arenacli/internal/domain"
)

// AppState is the immutable snapshot published for consumers (status
// output, logging). Writers never mutate a published value; every update
// installs a fresh copy.
type AppState struct {
	Price       decimal.Decimal
	HasPrice    bool
	Position    *domain.PositionSnapshot
	Leaderboard []domain.LeaderboardEntry
	Trades      []domain.TradeRecord
	LastError   string
	LastErrorAt time.Time
	UpdatedAt   time.Time
}

// StateCell is a read-mostly cell holding the latest AppState. The polling
// loops and the post-trade refresh all write concurrently through the same
// cell; each write retries on contention so no loop's update is lost.
// Readers always observe a complete snapshot and never take a lock.
type StateCell struct {
	v atomic.Pointer[AppState]
}

// NewStateCell creates a cell holding an empty state.
func NewStateCell() *StateCell {
	c := &StateCell{}
	c.v.Store(&AppState{})
	return c
}

// Load returns the current snapshot by value.
func (c *StateCell) Load() AppState {
	return *c.v.Load()
}

func (c *StateCell) update(fn func(*AppState)) {
	for {
		old := c.v.Load()
		cur := *old
		fn(&cur)
		cur.UpdatedAt = time.Now()
		if c.v.CompareAndSwap(old, &cur) {
			return
		}
	}
}

// SetPrice publishes the latest mark price.
func (c *StateCell) SetPrice(price decimal.Decimal) {
	c.update(func(s *AppState) {
		s.Price = price
		s.HasPrice = true
	})
}

// SetPosition publishes a fresh position snapshot.
func (c *StateCell) SetPosition(snap domain.PositionSnapshot) {
	c.update(func(s *AppState) {
		s.Position = &snap
	})
}

// SetLeaderboard publishes the latest leaderboard window.
func (c *StateCell) SetLeaderboard(entries []domain.LeaderboardEntry) {
	c.update(func(s *AppState) {
		s.Leaderboard = entries
	})
}

// SetLastError records a swallowed read-path failure so consumers can note
// that the displayed data may be stale.
func (c *StateCell) SetLastError(err error) {
	c.update(func(s *AppState) {
		s.LastError = err.Error()
		s.LastErrorAt = time.Now()
	})
}

// SetTrades publishes the latest trade-history window.
func (c *StateCell) SetTrades(trades []domain.TradeRecord) {
	c.update(func(s *AppState) {
		s.Trades = trades
	})
}
