package internal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tradearena/arenacli/config"
	"github.com/tradearena/arenacli/internal/domain"
	"github.com/tradearena/arenacli/internal/services/market"
)

// tailFetchLimit is the window of the cheap live poll. Only the completed
// previous bucket and the in-progress one are of interest, but the server
// clamps the candles limit to a minimum of 10, so ask for what it will send
// anyway; the reconciler discards the already-cached older bars as stale.
const tailFetchLimit = 10

type marketClient interface {
	Candles(ctx context.Context, limit, tf int) ([]domain.Candle, error)
	Me(ctx context.Context, code string) (domain.PositionSnapshot, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	Trades(ctx context.Context, code string, limit int) ([]domain.TradeRecord, error)
}

type identityReader interface {
	Get() domain.Identity
}

// Poller runs the independent refresh cadences against the shared state.
// Each loop owns its own ticker and runs its tick body synchronously, so
// in-flight requests for one resource never pile up and one loop's failure
// never cancels or delays another.
type Poller struct {
	client     marketClient
	ids        identityReader
	reconciler *market.Reconciler
	state      *StateCell
	conf       config.Config
	logger     *zap.Logger
}

// NewPoller wires the polling scheduler.
func NewPoller(client marketClient, ids identityReader, reconciler *market.Reconciler, state *StateCell, conf config.Config, logger *zap.Logger) *Poller {
	return &Poller{
		client:     client,
		ids:        ids,
		reconciler: reconciler,
		state:      state,
		conf:       conf,
		logger:     logger,
	}
}

// Run starts all polling loops and blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.loop(ctx, "candles", p.conf.PriceInterval, p.refreshCandles) })
	g.Go(func() error { return p.loop(ctx, "position", p.conf.PositionInterval, p.refreshPosition) })
	g.Go(func() error { return p.loop(ctx, "leaderboard", p.conf.LeaderboardInterval, p.refreshLeaderboard) })
	g.Go(func() error { return p.loop(ctx, "trades", p.conf.TradesInterval, p.refreshTrades) })

	return g.Wait()
}

// loop ticks fn at a fixed cadence. Read-path failures are logged and
// swallowed; the displayed data simply goes stale until the next successful
// poll.
func (p *Poller) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	p.tick(ctx, name, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx, name, fn)
		}
	}
}

func (p *Poller) tick(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		p.logger.Error("refresh failed", zap.String("loop", name), zap.Error(err))
		p.state.SetLastError(err)
	}
}

// RefreshAfterTrade collapses the wait for the next scheduled ticks after a
// trade: own position, leaderboard and trade history refresh immediately,
// through the same functions the scheduled loops use.
func (p *Poller) RefreshAfterTrade(ctx context.Context) {
	refreshes := map[string]func(context.Context) error{
		"position":    p.refreshPosition,
		"leaderboard": p.refreshLeaderboard,
		"trades":      p.refreshTrades,
	}

	var wg sync.WaitGroup
	for name, fn := range refreshes {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			p.tick(ctx, name, fn)
		}(name, fn)
	}
	wg.Wait()
}

// refreshCandles is the unconditional live-price loop: a cheap tail poll
// while synced, a full history fetch when uninitialized or after a rollover
// clears the resync gate.
func (p *Poller) refreshCandles(ctx context.Context) error {
	if !p.reconciler.Synced() {
		return p.fullResync(ctx)
	}

	tail, err := p.client.Candles(ctx, tailFetchLimit, p.conf.TimeframeSec)
	if err != nil {
		return err
	}

	resync := false
	for _, bar := range tail {
		if p.reconciler.ApplyTail(bar) == market.TailRolloverResync {
			resync = true
		}
	}
	if resync {
		if err := p.fullResync(ctx); err != nil {
			return err
		}
	}

	p.publishPrice()
	return nil
}

func (p *Poller) fullResync(ctx context.Context) error {
	candles, err := p.client.Candles(ctx, p.conf.CandleLimit, p.conf.TimeframeSec)
	if err != nil {
		return err
	}
	if err := p.reconciler.ApplyFull(candles); err != nil {
		return err
	}
	p.publishPrice()
	return nil
}

func (p *Poller) publishPrice() {
	if price, ok := p.reconciler.LastPrice(); ok {
		p.state.SetPrice(price)
	}
}

// refreshPosition polls /api/me. Skipped entirely while no player has
// joined; polling on behalf of "no player" is never issued.
func (p *Poller) refreshPosition(ctx context.Context) error {
	id := p.ids.Get()
	if id.IsEmpty() {
		return nil
	}

	snap, err := p.client.Me(ctx, id.Code)
	if err != nil {
		return err
	}
	p.state.SetPosition(snap)
	return nil
}

// refreshLeaderboard polls the ranking. Runs independently of identity.
func (p *Poller) refreshLeaderboard(ctx context.Context) error {
	entries, err := p.client.Leaderboard(ctx, p.conf.LeaderboardLimit)
	if err != nil {
		return err
	}
	p.state.SetLeaderboard(entries)
	return nil
}

// refreshTrades polls the player's trade history. Identity-gated like the
// position loop.
func (p *Poller) refreshTrades(ctx context.Context) error {
	id := p.ids.Get()
	if id.IsEmpty() {
		return nil
	}

	trades, err := p.client.Trades(ctx, id.Code, p.conf.TradeLimit)
	if err != nil {
		return err
	}
	p.state.SetTrades(trades)
	return nil
}
