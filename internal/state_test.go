package internal

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradearena/arenacli/internal/domain"
)

func TestStateCellStartsEmpty(t *testing.T) {
	state := NewStateCell().Load()

	assert.False(t, state.HasPrice)
	assert.Nil(t, state.Position)
	assert.Empty(t, state.Leaderboard)
	assert.Empty(t, state.LastError)
}

func TestStateCellUpdatesAreIndependent(t *testing.T) {
	cell := NewStateCell()

	cell.SetPrice(decimal.NewFromFloat(11.5))
	cell.SetPosition(domain.PositionSnapshot{Nick: "alice", Pos: decimal.NewFromFloat(1.5)})
	cell.SetLeaderboard([]domain.LeaderboardEntry{{Nick: "alice"}})

	state := cell.Load()
	assert.True(t, state.HasPrice)
	assert.True(t, decimal.NewFromFloat(11.5).Equal(state.Price))
	require.NotNil(t, state.Position)
	assert.Equal(t, "alice", state.Position.Nick)
	assert.Len(t, state.Leaderboard, 1)
	assert.False(t, state.UpdatedAt.IsZero())
}

func TestStateCellSnapshotsAreImmutable(t *testing.T) {
	cell := NewStateCell()
	cell.SetPosition(domain.PositionSnapshot{Nick: "alice"})

	first := cell.Load()
	cell.SetPosition(domain.PositionSnapshot{Nick: "bob"})

	assert.Equal(t, "alice", first.Position.Nick, "a loaded snapshot never changes under the reader")
	assert.Equal(t, "bob", cell.Load().Position.Nick)
}

func TestStateCellConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	cell := NewStateCell()
	const iterations = 10_000

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			cell.SetPrice(decimal.NewFromInt(int64(i)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			cell.SetPosition(domain.PositionSnapshot{Pos: decimal.NewFromInt(int64(i))})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			cell.SetTrades([]domain.TradeRecord{{ID: int64(i)}})
		}
	}()
	wg.Wait()

	// each writer touches its own field, so the final value of every field
	// must be that writer's last write; a write interleaved between another
	// writer's load and store must not erase it
	state := cell.Load()
	assert.True(t, decimal.NewFromInt(iterations-1).Equal(state.Price), "got %s", state.Price)
	require.NotNil(t, state.Position)
	assert.True(t, decimal.NewFromInt(iterations-1).Equal(state.Position.Pos), "got %s", state.Position.Pos)
	require.Len(t, state.Trades, 1)
	assert.Equal(t, int64(iterations-1), state.Trades[0].ID)
}

func TestStateCellLastError(t *testing.T) {
	cell := NewStateCell()
	cell.SetLastError(errors.New("leaderboard refresh failed"))

	state := cell.Load()
	assert.Equal(t, "leaderboard refresh failed", state.LastError)
	assert.False(t, state.LastErrorAt.IsZero())

	// later successful updates keep the record, they do not clear it
	cell.SetPrice(decimal.NewFromFloat(11.5))
	assert.Equal(t, "leaderboard refresh failed", cell.Load().LastError)
}
