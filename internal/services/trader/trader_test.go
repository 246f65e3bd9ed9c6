package trader

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradearena/arenacli/internal/clients"
	"github.com/tradearena/arenacli/internal/domain"
)

type fakeClient struct {
	snapshot domain.PositionSnapshot
	meErr    error
	result   clients.TradeResult
	tradeErr error

	tradedSide domain.Side
	tradedUSD  decimal.Decimal
	tradeCalls int
}

func (f *fakeClient) Me(ctx context.Context, code string) (domain.PositionSnapshot, error) {
	return f.snapshot, f.meErr
}

func (f *fakeClient) Trade(ctx context.Context, code string, side domain.Side, usd decimal.Decimal) (clients.TradeResult, error) {
	f.tradeCalls++
	f.tradedSide = side
	f.tradedUSD = usd
	return f.result, f.tradeErr
}

type fakeIdentity struct {
	id domain.Identity
}

func (f *fakeIdentity) Get() domain.Identity { return f.id }

type fakePublisher struct {
	published []domain.PositionSnapshot
}

func (f *fakePublisher) SetPosition(snap domain.PositionSnapshot) {
	f.published = append(f.published, snap)
}

type fakeRefresher struct {
	calls int
}

func (f *fakeRefresher) RefreshAfterTrade(ctx context.Context) { f.calls++ }

func newTestService(client *fakeClient, id domain.Identity) (*Service, *fakePublisher, *fakeRefresher) {
	publisher := &fakePublisher{}
	refresher := &fakeRefresher{}
	svc := NewService(client, &fakeIdentity{id: id}, publisher, refresher, zap.NewNop())
	return svc, publisher, refresher
}

func TestBuyPublishesAndRefreshes(t *testing.T) {
	client := &fakeClient{result: clients.TradeResult{
		Side:       domain.SideBuy,
		PriceAfter: decimal.NewFromFloat(20.1),
		Me:         domain.PositionSnapshot{Pos: decimal.NewFromFloat(2.5)},
	}}
	svc, publisher, refresher := newTestService(client, domain.Identity{Code: "abcd", Nick: "alice"})

	result, err := svc.Buy(context.Background(), decimal.NewFromInt(50))
	require.NoError(t, err)

	assert.Equal(t, domain.SideBuy, client.tradedSide)
	assert.True(t, decimal.NewFromInt(50).Equal(client.tradedUSD))
	assert.Equal(t, domain.SideBuy, result.Side)

	require.Len(t, publisher.published, 1, "embedded snapshot published without waiting for the position loop")
	assert.True(t, decimal.NewFromFloat(2.5).Equal(publisher.published[0].Pos))
	assert.Equal(t, 1, refresher.calls)
}

func TestTradeWithoutIdentity(t *testing.T) {
	client := &fakeClient{}
	svc, publisher, refresher := newTestService(client, domain.Identity{})

	_, err := svc.Buy(context.Background(), decimal.NewFromInt(50))
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = svc.Sell(context.Background(), decimal.NewFromInt(50))
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = svc.ClosePosition(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)

	assert.Zero(t, client.tradeCalls)
	assert.Empty(t, publisher.published)
	assert.Zero(t, refresher.calls)
}

func TestTradeErrorIsSurfaced(t *testing.T) {
	client := &fakeClient{tradeErr: errors.New("insufficient cash")}
	svc, publisher, refresher := newTestService(client, domain.Identity{Code: "abcd", Nick: "alice"})

	_, err := svc.Sell(context.Background(), decimal.NewFromInt(50))
	assert.EqualError(t, err, "insufficient cash")

	assert.Empty(t, publisher.published, "failed trades publish nothing")
	assert.Zero(t, refresher.calls)
}

func TestClosePositionShort(t *testing.T) {
	client := &fakeClient{
		snapshot: domain.PositionSnapshot{
			Pos:   decimal.NewFromFloat(-2.5),
			Price: decimal.NewFromFloat(20),
		},
		result: clients.TradeResult{
			Side: domain.SideBuy,
			Me:   domain.PositionSnapshot{Pos: decimal.Zero},
		},
	}
	svc, _, refresher := newTestService(client, domain.Identity{Code: "abcd", Nick: "alice"})

	_, err := svc.ClosePosition(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SideBuy, client.tradedSide, "a short flattens with a BUY")
	assert.True(t, decimal.NewFromInt(50).Equal(client.tradedUSD), "full notional 2.5 * 20, got %s", client.tradedUSD)
	assert.Equal(t, 1, refresher.calls)
}

func TestClosePositionFlat(t *testing.T) {
	client := &fakeClient{snapshot: domain.PositionSnapshot{
		Pos:   decimal.Zero,
		Price: decimal.NewFromFloat(20),
	}}
	svc, _, _ := newTestService(client, domain.Identity{Code: "abcd", Nick: "alice"})

	_, err := svc.ClosePosition(context.Background())
	assert.ErrorIs(t, err, domain.ErrFlatPosition)
	assert.Zero(t, client.tradeCalls, "no order is submitted for a flat position")
}

func TestClosePositionMeFailure(t *testing.T) {
	client := &fakeClient{meErr: errors.New("boom")}
	svc, _, _ := newTestService(client, domain.Identity{Code: "abcd", Nick: "alice"})

	_, err := svc.ClosePosition(context.Background())
	assert.ErrorContains(t, err, "fetch position before close")
	assert.Zero(t, client.tradeCalls)
}
