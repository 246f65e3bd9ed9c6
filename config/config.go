package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the server's clamps and the cadences the UI was tuned for.
const (
	DefaultTimeframeSec     = 300
	DefaultCandleLimit      = 200
	DefaultLeaderboardLimit = 50
	DefaultTradeLimit       = 50

	defaultPriceInterval       = 2 * time.Second
	defaultPositionInterval    = 3 * time.Second
	defaultLeaderboardInterval = 5 * time.Second
	defaultTradesInterval      = 10 * time.Second
	defaultMinResyncInterval   = 20 * time.Second
	defaultReadTimeout         = 6 * time.Second
	defaultWriteTimeout        = 12 * time.Second
	defaultRetryBudget         = 1
)

// Config holds everything the client needs to reach and poll the arena
// service.
type Config struct {
	BaseURL string

	TimeframeSec     int
	CandleLimit      int
	LeaderboardLimit int
	TradeLimit       int

	PriceInterval       time.Duration
	PositionInterval    time.Duration
	LeaderboardInterval time.Duration
	TradesInterval      time.Duration
	MinResyncInterval   time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RetryBudget  int

	IdentityDir string
}

// ConfigTmp is the yaml-facing shape; durations are parsed from strings so
// configs can say "2s" or "5m".
type ConfigTmp struct {
	BaseURL string `yaml:"base_url"`

	TimeframeSec     int `yaml:"timeframe_sec,omitempty"`
	CandleLimit      int `yaml:"candle_limit,omitempty"`
	LeaderboardLimit int `yaml:"leaderboard_limit,omitempty"`
	TradeLimit       int `yaml:"trade_limit,omitempty"`

	PriceIntervalStr       string `yaml:"price_interval,omitempty"`
	PositionIntervalStr    string `yaml:"position_interval,omitempty"`
	LeaderboardIntervalStr string `yaml:"leaderboard_interval,omitempty"`
	TradesIntervalStr      string `yaml:"trades_interval,omitempty"`
	MinResyncIntervalStr   string `yaml:"min_resync_interval,omitempty"`

	ReadTimeoutStr  string `yaml:"read_timeout,omitempty"`
	WriteTimeoutStr string `yaml:"write_timeout,omitempty"`
	RetryBudget     int    `yaml:"retry_budget,omitempty"`

	IdentityDir string `yaml:"identity_dir,omitempty"`
}

// Get loads the configuration from the yaml file given with --config, or
// from CLI flags when no file is provided.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	baseURL := flag.String("base-url", "http://localhost:8000", "arena service base URL")
	tf := flag.Int("tf", DefaultTimeframeSec, "candle timeframe in seconds")
	identityDir := flag.String("identity-dir", "", "directory for the identity store")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	conf := withDefaults(Config{
		BaseURL:      *baseURL,
		TimeframeSec: *tf,
		IdentityDir:  *identityDir,
	})
	return conf, conf.validate()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	conf := Config{
		BaseURL:          tmp.BaseURL,
		TimeframeSec:     tmp.TimeframeSec,
		CandleLimit:      tmp.CandleLimit,
		LeaderboardLimit: tmp.LeaderboardLimit,
		TradeLimit:       tmp.TradeLimit,
		RetryBudget:      tmp.RetryBudget,
		IdentityDir:      tmp.IdentityDir,
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"price_interval", tmp.PriceIntervalStr, &conf.PriceInterval},
		{"position_interval", tmp.PositionIntervalStr, &conf.PositionInterval},
		{"leaderboard_interval", tmp.LeaderboardIntervalStr, &conf.LeaderboardInterval},
		{"trades_interval", tmp.TradesIntervalStr, &conf.TradesInterval},
		{"min_resync_interval", tmp.MinResyncIntervalStr, &conf.MinResyncInterval},
		{"read_timeout", tmp.ReadTimeoutStr, &conf.ReadTimeout},
		{"write_timeout", tmp.WriteTimeoutStr, &conf.WriteTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect '%s' param in yaml config (e.g. 2s, 5m): %w", d.name, err)
		}
		*d.dst = parsed
	}

	conf = withDefaults(conf)
	return conf, conf.validate()
}

func withDefaults(conf Config) Config {
	if conf.TimeframeSec <= 0 {
		conf.TimeframeSec = DefaultTimeframeSec
	}
	if conf.CandleLimit <= 0 {
		conf.CandleLimit = DefaultCandleLimit
	}
	if conf.LeaderboardLimit <= 0 {
		conf.LeaderboardLimit = DefaultLeaderboardLimit
	}
	if conf.TradeLimit <= 0 {
		conf.TradeLimit = DefaultTradeLimit
	}
	if conf.PriceInterval <= 0 {
		conf.PriceInterval = defaultPriceInterval
	}
	if conf.PositionInterval <= 0 {
		conf.PositionInterval = defaultPositionInterval
	}
	if conf.LeaderboardInterval <= 0 {
		conf.LeaderboardInterval = defaultLeaderboardInterval
	}
	if conf.TradesInterval <= 0 {
		conf.TradesInterval = defaultTradesInterval
	}
	if conf.MinResyncInterval <= 0 {
		conf.MinResyncInterval = defaultMinResyncInterval
	}
	if conf.ReadTimeout <= 0 {
		conf.ReadTimeout = defaultReadTimeout
	}
	if conf.WriteTimeout <= 0 {
		conf.WriteTimeout = defaultWriteTimeout
	}
	if conf.RetryBudget <= 0 {
		conf.RetryBudget = defaultRetryBudget
	}
	return conf
}

func (c Config) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("'base_url' param is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("'base_url' must start with http:// or https://, got %s", c.BaseURL)
	}
	return nil
}
