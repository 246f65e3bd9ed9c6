// Command arenacli keeps a trading-arena participant's view of the
// simulated market and their own position synchronized with the remote
// simulation service over periodic HTTP polling, and lets them trade from
// the terminal.
//
// Usage:
//
//	arenacli --config config.yaml
//	arenacli --base-url http://localhost:8000
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tradearena/arenacli/config"
	"github.com/tradearena/arenacli/internal"
	"github.com/tradearena/arenacli/internal/clients"
	"github.com/tradearena/arenacli/internal/services/market"
	"github.com/tradearena/arenacli/internal/services/trader"
	"github.com/tradearena/arenacli/internal/setup"
	identitystore "github.com/tradearena/arenacli/internal/storage/identity"
)

func main() {
	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := clients.NewArenaClient(clients.ClientConfig{
		BaseURL:      conf.BaseURL,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		RetryBudget:  conf.RetryBudget,
	}, logger)

	if err := client.Health(ctx); err != nil {
		logger.Fatal("arena service unreachable",
			zap.String("base_url", conf.BaseURL), zap.Error(err))
	}

	store, err := identitystore.NewStore(conf.IdentityDir)
	if err != nil {
		logger.Fatal("failed to open identity store", zap.Error(err))
	}
	defer store.Close()

	id := store.Get()
	if id.IsEmpty() {
		id, err = setup.RunJoinWizard()
		if err != nil {
			logger.Fatal("join wizard failed", zap.Error(err))
		}
		if err := client.Join(ctx, id); err != nil {
			// write-path failure, surface the server's message verbatim
			logger.Fatal("join rejected", zap.Error(err))
		}
		if err := store.Set(id.Code, id.Nick); err != nil {
			logger.Fatal("failed to persist identity", zap.Error(err))
		}
		logger.Info("joined the arena",
			zap.String("code", id.Code), zap.String("nick", id.Nick))
	}

	started, err := client.State(ctx)
	if err != nil {
		logger.Fatal("failed to query market state", zap.Error(err))
	}
	if !started {
		if _, err := client.Start(ctx); err != nil {
			logger.Fatal("failed to start market", zap.Error(err))
		}
		logger.Info("market started")
	}

	stateCell := internal.NewStateCell()
	reconciler := market.NewReconciler(conf.MinResyncInterval, logger)
	poller := internal.NewPoller(client, store, reconciler, stateCell, conf, logger)
	trades := trader.NewService(client, store, stateCell, poller, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := new(errgroup.Group)
	g.Go(func() error {
		return poller.Run(runCtx)
	})

	logger.Info("polling started",
		zap.String("base_url", conf.BaseURL),
		zap.Int("timeframe_sec", conf.TimeframeSec),
		zap.Duration("price_interval", conf.PriceInterval))

	runMenu(runCtx, stateCell, trades, logger)
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("poller stopped", zap.Error(err))
	}
}

// runMenu drives the interactive trade loop until the user quits or the
// context is cancelled. Without a usable terminal the client keeps polling
// headless.
func runMenu(ctx context.Context, state *internal.StateCell, trades *trader.Service, logger *zap.Logger) {
	for ctx.Err() == nil {
		action, usd, err := setup.RunTradeMenu(state.Load())
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return
			}
			logger.Warn("interactive menu unavailable, polling headless", zap.Error(err))
			<-ctx.Done()
			return
		}

		switch action {
		case setup.ActionBuy:
			if _, err := trades.Buy(ctx, usd); err != nil {
				notifyFailure("buy failed", err)
			}
		case setup.ActionSell:
			if _, err := trades.Sell(ctx, usd); err != nil {
				notifyFailure("sell failed", err)
			}
		case setup.ActionClose:
			if _, err := trades.ClosePosition(ctx); err != nil {
				notifyFailure("close failed", err)
			}
		case setup.ActionQuit:
			return
		}
	}
}

func notifyFailure(action string, err error) {
	fmt.Printf("%s: %v\n", action, err)
}
