package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradearena/arenacli/internal/domain"
	"github.com/tradearena/arenacli/pkg/retrier"
)

const (
	defaultReadTimeout  = 6 * time.Second
	defaultWriteTimeout = 12 * time.Second
	retryBackoff        = 300 * time.Millisecond
)

// ClientConfig bounds every outbound call.
type ClientConfig struct {
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RetryBudget  int
}

// ArenaClient speaks the trading-arena JSON/HTTP contract. Every call is
// bounded by a per-call timeout; transient network failures are retried
// within a small fixed budget, non-2xx responses and decode failures are
// surfaced after a single attempt. The client holds no state between calls
// beyond connection reuse inside http.Client.
type ArenaClient struct {
	baseURL      string
	httpClient   *http.Client
	retry        *retrier.Retrier
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewArenaClient creates a client for the service at cfg.BaseURL.
func NewArenaClient(cfg ClientConfig, logger *zap.Logger) *ArenaClient {
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	budget := cfg.RetryBudget
	if budget < 0 {
		budget = 0
	}

	return &ArenaClient{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:   &http.Client{},
		retry:        retrier.New(retrier.WithMaxRetries(budget), retrier.WithInitialInterval(retryBackoff)),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (c *ArenaClient) do(ctx context.Context, method, path string, query url.Values, body, out any, timeout time.Duration) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.attempt(ctx, method, path, query, body, out, timeout)
	})
}

func (c *ArenaClient) attempt(ctx context.Context, method, path string, query url.Values, body, out any, timeout time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return retrier.Unrecoverable(errors.Wrap(err, "encode request body"))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
	if err != nil {
		return retrier.Unrecoverable(errors.Wrap(err, "build request"))
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// timeout, cancellation and connection failures all count as
		// transient network failures
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Detail != "" {
			herr.Detail = eb.Detail
		}
		c.logger.Debug("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode))
		return retrier.Unrecoverable(herr)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return retrier.Unrecoverable(&ParseError{Err: err})
		}
	}
	return nil
}

// Health probes /api/health. Used once at startup to fail fast on a bad
// base URL.
func (c *ArenaClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, nil, c.readTimeout)
}

type stateResponse struct {
	Started bool `json:"started"`
}

// State reports whether the market engine is running.
func (c *ArenaClient) State(ctx context.Context) (bool, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, nil, &resp, c.readTimeout); err != nil {
		return false, err
	}
	return resp.Started, nil
}

// Start asks the engine to start the market if it is not already running.
func (c *ArenaClient) Start(ctx context.Context) (bool, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodPost, "/api/start", nil, struct{}{}, &resp, c.writeTimeout); err != nil {
		return false, err
	}
	return resp.Started, nil
}

type joinRequest struct {
	Code string `json:"code"`
	Nick string `json:"nick"`
}

// Join registers or re-attaches a player identity.
func (c *ArenaClient) Join(ctx context.Context, identity domain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	body := joinRequest{Code: strings.TrimSpace(identity.Code), Nick: strings.TrimSpace(identity.Nick)}
	return c.do(ctx, http.MethodPost, "/api/join", nil, body, nil, c.writeTimeout)
}

// Candles fetches the limit most recent bars aggregated to tf-second
// buckets, oldest first, including the in-progress live bucket.
func (c *ArenaClient) Candles(ctx context.Context, limit, tf int) ([]domain.Candle, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("tf", strconv.Itoa(tf))

	var candles []domain.Candle
	if err := c.do(ctx, http.MethodGet, "/api/candles", query, nil, &candles, c.readTimeout); err != nil {
		return nil, err
	}
	return candles, nil
}

// Me fetches the player's current position snapshot including the mark
// price.
func (c *ArenaClient) Me(ctx context.Context, code string) (domain.PositionSnapshot, error) {
	query := url.Values{}
	query.Set("code", code)

	var snap domain.PositionSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/me", query, nil, &snap, c.readTimeout); err != nil {
		return domain.PositionSnapshot{}, err
	}
	return snap, nil
}

// Leaderboard fetches up to limit players ranked by equity.
func (c *ArenaClient) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var entries []domain.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", query, nil, &entries, c.readTimeout); err != nil {
		return nil, err
	}
	return entries, nil
}

// Trades fetches the player's recent trade history, oldest first.
func (c *ArenaClient) Trades(ctx context.Context, code string, limit int) ([]domain.TradeRecord, error) {
	query := url.Values{}
	query.Set("code", code)
	query.Set("limit", strconv.Itoa(limit))

	var trades []domain.TradeRecord
	if err := c.do(ctx, http.MethodGet, "/api/trades", query, nil, &trades, c.readTimeout); err != nil {
		return nil, err
	}
	return trades, nil
}

type tradeRequest struct {
	Code string  `json:"code"`
	Side string  `json:"side"`
	USD  float64 `json:"usd"`
}

// TradeResult is the server's response to a market order, including a
// refreshed position snapshot so the caller does not need an extra poll.
type TradeResult struct {
	Side       domain.Side             `json:"side"`
	RichOut    decimal.Decimal         `json:"rich_out"`
	UsdOut     decimal.Decimal         `json:"usd_out"`
	Fee        decimal.Decimal         `json:"fee"`
	PriceAfter decimal.Decimal         `json:"price_after"`
	Me         domain.PositionSnapshot `json:"me"`
}

// Trade executes a market order of usd notional on the given side.
func (c *ArenaClient) Trade(ctx context.Context, code string, side domain.Side, usd decimal.Decimal) (TradeResult, error) {
	if !side.Valid() {
		return TradeResult{}, errors.Errorf("invalid side %q", side)
	}
	if !usd.IsPositive() {
		return TradeResult{}, errors.New("trade notional must be positive")
	}

	body := tradeRequest{Code: code, Side: string(side), USD: usd.InexactFloat64()}

	var result TradeResult
	if err := c.do(ctx, http.MethodPost, "/api/trade", nil, body, &result, c.writeTimeout); err != nil {
		return TradeResult{}, err
	}
	return result, nil
}
