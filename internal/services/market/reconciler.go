// Package market maintains the client's authoritative in-memory OHLC series
// and merges frequent live-tail polls into the larger cached history.
package market

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradearena/arenacli/internal/domain"
)

// DefaultMinResyncInterval gates how often a timeframe rollover may trigger
// a full history refetch.
const DefaultMinResyncInterval = 20 * time.Second

// TailOutcome describes how a live tail bar was absorbed.
type TailOutcome int

const (
	// TailIgnored means the bar was stale or the cache is not populated yet.
	TailIgnored TailOutcome = iota
	// TailUpdated means the in-progress bucket was updated in place.
	TailUpdated
	// TailRolloverResync means a timeframe boundary rolled over and a full
	// resync is due now.
	TailRolloverResync
	// TailRolloverDeferred means a boundary rolled over but the resync gate
	// has not expired; the refetch waits for the next rollover.
	TailRolloverDeferred
)

func (o TailOutcome) String() string {
	switch o {
	case TailUpdated:
		return "updated"
	case TailRolloverResync:
		return "rollover_resync"
	case TailRolloverDeferred:
		return "rollover_deferred"
	default:
		return "ignored"
	}
}

// Reconciler owns the cached candle series. A rare full fetch replaces the
// cache wholesale; frequent tail polls update the live bucket in place. A
// tail bar from a new bucket cannot be appended safely (it cannot backfill
// bars skipped while the client was suspended), so rollovers schedule a
// full resync instead, bounded by the min resync interval.
//
// All methods are safe for concurrent use; Snapshot returns a copy so a
// render pass never observes a partially-updated series.
type Reconciler struct {
	mu                sync.RWMutex
	candles           []domain.Candle
	lastCandleTime    int64
	lastPrice         decimal.Decimal
	hasPrice          bool
	lastFullResyncAt  time.Time
	minResyncInterval time.Duration
	synced            bool

	now    func() time.Time
	logger *zap.Logger
}

// NewReconciler creates an empty (uninitialized) reconciler.
func NewReconciler(minResyncInterval time.Duration, logger *zap.Logger) *Reconciler {
	if minResyncInterval <= 0 {
		minResyncInterval = DefaultMinResyncInterval
	}
	return &Reconciler{
		minResyncInterval: minResyncInterval,
		now:               time.Now,
		logger:            logger,
	}
}

// ApplyFull replaces the cache wholesale with the result of a full history
// fetch and resets the resync gate. The series must be strictly increasing
// in time.
func (r *Reconciler) ApplyFull(candles []domain.Candle) error {
	if len(candles) == 0 {
		return errors.New("full fetch returned no candles")
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Time <= candles[i-1].Time {
			return errors.Errorf("candle series not strictly increasing at index %d (%d after %d)",
				i, candles[i].Time, candles[i-1].Time)
		}
	}

	fresh := make([]domain.Candle, len(candles))
	copy(fresh, candles)
	last := fresh[len(fresh)-1]

	r.mu.Lock()
	defer r.mu.Unlock()

	r.candles = fresh
	r.lastCandleTime = last.Time
	r.lastPrice = last.Close
	r.hasPrice = true
	r.lastFullResyncAt = r.now()
	r.synced = true

	r.logger.Debug("candle cache replaced",
		zap.Int("bars", len(fresh)),
		zap.Int64("last_candle_time", last.Time))
	return nil
}

// ApplyTail absorbs one live tail bar and reports how it was handled. The
// live price is republished on every accepted bar, including rollovers
// whose bar is not cached yet.
func (r *Reconciler) ApplyTail(bar domain.Candle) TailOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.synced {
		return TailIgnored
	}

	switch {
	case bar.Time < r.lastCandleTime:
		// late response from a cancelled or slow poll, discard
		return TailIgnored

	case bar.Time == r.lastCandleTime:
		// the in-progress bucket evolved; all four prices may change
		r.candles[len(r.candles)-1] = bar
		r.lastPrice = bar.Close
		r.hasPrice = true
		return TailUpdated

	default:
		r.lastCandleTime = bar.Time
		r.lastPrice = bar.Close
		r.hasPrice = true

		if r.now().Sub(r.lastFullResyncAt) >= r.minResyncInterval {
			return TailRolloverResync
		}
		r.logger.Debug("rollover resync deferred",
			zap.Int64("last_candle_time", bar.Time))
		return TailRolloverDeferred
	}
}

// Snapshot returns a copy of the cached series, oldest first.
func (r *Reconciler) Snapshot() []domain.Candle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Candle, len(r.candles))
	copy(out, r.candles)
	return out
}

// LastPrice returns the most recently observed close price. The second
// return value is false until the first successful fetch.
func (r *Reconciler) LastPrice() (decimal.Decimal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastPrice, r.hasPrice
}

// LastCandleTime returns the bucket time of the newest observed bar.
func (r *Reconciler) LastCandleTime() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastCandleTime
}

// Synced reports whether the cache has been populated by a full fetch.
func (r *Reconciler) Synced() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synced
}
