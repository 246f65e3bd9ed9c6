// Package trader submits market orders and derives the counter-order that
// flattens an open position. Write-path failures are always surfaced to the
// caller; the only retries are the request client's own budget.
package trader

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradearena/arenacli/internal/clients"
	"github.com/tradearena/arenacli/internal/domain"
)

// ErrNoIdentity is returned when a trade is attempted before joining.
var ErrNoIdentity = errors.New("no player joined yet")

type arenaClient interface {
	Me(ctx context.Context, code string) (domain.PositionSnapshot, error)
	Trade(ctx context.Context, code string, side domain.Side, usd decimal.Decimal) (clients.TradeResult, error)
}

type identityReader interface {
	Get() domain.Identity
}

type snapshotPublisher interface {
	SetPosition(snap domain.PositionSnapshot)
}

type refresher interface {
	RefreshAfterTrade(ctx context.Context)
}

// Service executes trades for the joined player.
type Service struct {
	client    arenaClient
	ids       identityReader
	state     snapshotPublisher
	refresher refresher
	logger    *zap.Logger
}

// NewService wires the trade path.
func NewService(client arenaClient, ids identityReader, state snapshotPublisher, refresher refresher, logger *zap.Logger) *Service {
	return &Service{
		client:    client,
		ids:       ids,
		state:     state,
		refresher: refresher,
		logger:    logger,
	}
}

// Buy submits a BUY market order of usd notional.
func (s *Service) Buy(ctx context.Context, usd decimal.Decimal) (clients.TradeResult, error) {
	return s.trade(ctx, domain.SideBuy, usd)
}

// Sell submits a SELL market order of usd notional. Selling beyond the held
// quantity opens a short.
func (s *Service) Sell(ctx context.Context, usd decimal.Decimal) (clients.TradeResult, error) {
	return s.trade(ctx, domain.SideSell, usd)
}

// ClosePosition fetches the current snapshot, derives the counter-order for
// the full notional and submits it. Returns domain.ErrFlatPosition when
// there is nothing to close.
func (s *Service) ClosePosition(ctx context.Context) (clients.TradeResult, error) {
	id := s.ids.Get()
	if id.IsEmpty() {
		return clients.TradeResult{}, ErrNoIdentity
	}

	snap, err := s.client.Me(ctx, id.Code)
	if err != nil {
		return clients.TradeResult{}, errors.Wrap(err, "fetch position before close")
	}

	order, err := domain.ClosingOrder(snap)
	if err != nil {
		return clients.TradeResult{}, err
	}

	s.logger.Info("closing position",
		zap.String("direction", snap.Direction().String()),
		zap.String("side", string(order.Side)),
		zap.String("usd", order.USD.StringFixed(2)))

	return s.trade(ctx, order.Side, order.USD)
}

func (s *Service) trade(ctx context.Context, side domain.Side, usd decimal.Decimal) (clients.TradeResult, error) {
	id := s.ids.Get()
	if id.IsEmpty() {
		return clients.TradeResult{}, ErrNoIdentity
	}

	result, err := s.client.Trade(ctx, id.Code, side, usd)
	if err != nil {
		return clients.TradeResult{}, err
	}

	// the response embeds a refreshed snapshot, publish it without waiting
	// for the position loop
	s.state.SetPosition(result.Me)
	s.refresher.RefreshAfterTrade(ctx)

	s.logger.Info("trade executed",
		zap.String("side", string(side)),
		zap.String("usd", usd.StringFixed(2)),
		zap.String("price_after", result.PriceAfter.String()),
		zap.String("pos_after", result.Me.Pos.String()))

	return result, nil
}
