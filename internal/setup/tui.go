// Package setup holds the interactive terminal prompts: the first-run join
// wizard and the trade action menu.
package setup

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/tradearena/arenacli/internal"
	"github.com/tradearena/arenacli/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	loss      = lipgloss.AdaptiveColor{Light: "#D94A4A", Dark: "#F57373"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(subtle).
			Padding(0, 1)

	gainStyle = lipgloss.NewStyle().Foreground(special)
	lossStyle = lipgloss.NewStyle().Foreground(loss)
)

// RunJoinWizard prompts for the player code and nick used to join the
// arena. The returned identity is validated but not yet registered.
func RunJoinWizard() (domain.Identity, error) {
	var (
		code    string
		nick    string
		confirm bool
	)

	fmt.Println(headerStyle.Render("TRADING ARENA"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("No player found. Let's join the game.\n"))

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Player Code").
				Description("4-64 characters, no spaces. This is your handle, keep it.").
				Value(&code).
				Validate(domain.ValidateCode),
			huh.NewInput().
				Title("Nick").
				Description("Display name on the leaderboard (1-32 characters)").
				Value(&nick).
				Validate(domain.ValidateNick),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Join the arena with this identity?").
				Affirmative("Yes, join").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return domain.Identity{}, err
	}
	if !confirm {
		return domain.Identity{}, fmt.Errorf("join cancelled by user")
	}

	id := domain.Identity{Code: strings.TrimSpace(code), Nick: strings.TrimSpace(nick)}
	return id, id.Validate()
}

// TradeAction is the user's choice in the trade menu.
type TradeAction string

const (
	ActionBuy   TradeAction = "buy"
	ActionSell  TradeAction = "sell"
	ActionClose TradeAction = "close"
	ActionQuit  TradeAction = "quit"
)

// RunTradeMenu renders the current state and asks for the next action.
// For buy/sell it also prompts for the USD notional.
func RunTradeMenu(state internal.AppState) (TradeAction, decimal.Decimal, error) {
	fmt.Println(summaryStyle.Render(renderSummary(state)))

	var action TradeAction
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[TradeAction]().
				Title("Action").
				Options(
					huh.NewOption("Buy (USD notional)", ActionBuy),
					huh.NewOption("Sell (USD notional)", ActionSell),
					huh.NewOption("Close position", ActionClose),
					huh.NewOption("Quit", ActionQuit),
				).
				Value(&action),
		),
	).Run()
	if err != nil {
		return ActionQuit, decimal.Zero, err
	}

	if action != ActionBuy && action != ActionSell {
		return action, decimal.Zero, nil
	}

	var amountStr string
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("USD amount").
				Description("Notional value of the market order").
				Value(&amountStr).
				Validate(validateUSD),
		),
	).Run()
	if err != nil {
		return ActionQuit, decimal.Zero, err
	}

	usd, _ := decimal.NewFromString(strings.TrimSpace(amountStr))
	return action, usd, nil
}

func renderSummary(state internal.AppState) string {
	var b strings.Builder

	if state.HasPrice {
		fmt.Fprintf(&b, "Price: %s", state.Price.StringFixed(4))
	} else {
		b.WriteString("Price: n/a")
	}

	if p := state.Position; p != nil {
		dir, size := domain.Classify(p.Pos)
		fmt.Fprintf(&b, "\nPosition: %s", dir)
		if dir != domain.DirectionFlat {
			fmt.Fprintf(&b, " %s @ %s", size.String(), p.AvgPrice.StringFixed(4))
		}
		fmt.Fprintf(&b, "\nCash: %s  Equity: %s", p.Cash.StringFixed(2), p.Equity.StringFixed(2))
		fmt.Fprintf(&b, "\nPnL: %s (unrealized %s, realized %s)",
			pnl(p.PnLTotal), pnl(p.PnLUnrealized), pnl(p.PnLRealized))
	}

	if len(state.Leaderboard) > 0 {
		b.WriteString("\nLeaderboard:")
		top := state.Leaderboard
		if len(top) > 3 {
			top = top[:3]
		}
		for i, e := range top {
			fmt.Fprintf(&b, "\n  %d. %s  %s", i+1, e.Nick, e.Equity.StringFixed(2))
		}
	}

	if state.LastError != "" && time.Since(state.LastErrorAt) < 30*time.Second {
		fmt.Fprintf(&b, "\n%s", lossStyle.Render("Last poll error: "+state.LastError))
	}

	return b.String()
}

func pnl(v decimal.Decimal) string {
	sign, magnitude := domain.SignedDisplay(v)
	text := sign + magnitude.StringFixed(2)
	if sign == "-" {
		return lossStyle.Render(text)
	}
	return gainStyle.Render(text)
}

func validateUSD(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}
