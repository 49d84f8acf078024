// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed describes the market-data stream the bot subscribes to.
type Feed struct {
	Provider string   `yaml:"provider"` // "stub" or "fyers"
	WSURL    string   `yaml:"ws_url"`
	Symbols  []string `yaml:"symbols"`
}

// Broker configures the REST order endpoint. The access token itself lives in
// the environment, not on disk.
type Broker struct {
	BaseURL        string `yaml:"base_url"`
	AppID          string `yaml:"app_id"`
	AccessTokenEnv string `yaml:"access_token_env"`
}

// Telegram configures the outbound notification channel.
type Telegram struct {
	Enabled     bool   `yaml:"enabled"`
	BotTokenEnv string `yaml:"bot_token_env"`
	ChatID      string `yaml:"chat_id"`
}

// Session bounds trading to a time-of-day window (UTC) and sets poll cadences.
type Session struct {
	OpenUTC    string `yaml:"open_utc"`
	CloseUTC   string `yaml:"close_utc"`
	PollMs     int    `yaml:"poll_ms"`
	IdlePollMs int    `yaml:"idle_poll_ms"`
}

// Candle controls aggregation granularity and history retention.
type Candle struct {
	IntervalMin  int `yaml:"interval_min"`
	HistoryLimit int `yaml:"history_limit"`
}

// Strategy specifies which detector set is active along with tunable knobs.
type Strategy struct {
	Mode             string  `yaml:"mode"` // sma, vwap, orb, trap_vwap, vwap_orb
	ShortPeriod      int     `yaml:"short_period"`
	LongPeriod       int     `yaml:"long_period"`
	OpenRangeMinutes int     `yaml:"open_range_minutes"`
	VWAPEpsilon      float64 `yaml:"vwap_epsilon"`
	TrapThreshold    float64 `yaml:"trap_threshold"`
}

// Risk encodes bracket-order sizing applied to every entry.
type Risk struct {
	TradeQuantity      int     `yaml:"trade_quantity"`
	StopLossPercent    float64 `yaml:"stop_loss_percent"`
	TargetPercent      float64 `yaml:"target_percent"`
	TrailingStopPoints float64 `yaml:"trailing_stop_points"`
	TickSize           float64 `yaml:"tick_size"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Feed     Feed     `yaml:"feed"`
	Broker   Broker   `yaml:"broker"`
	Telegram Telegram `yaml:"telegram"`
	Session  Session  `yaml:"session"`
	Candle   Candle   `yaml:"candle"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
}

// Default returns the baseline configuration the bot runs with when a field is
// absent from the YAML file.
func Default() Config {
	return Config{
		App: App{Name: "gangu-pro", MetricsAddr: ":9091", LogLevel: "info"},
		Feed: Feed{
			Provider: "stub",
			Symbols:  []string{"NSE:SBIN-EQ", "NSE:RELIANCE-EQ"},
		},
		Broker:   Broker{AccessTokenEnv: "BROKER_ACCESS_TOKEN"},
		Telegram: Telegram{BotTokenEnv: "TELEGRAM_BOT_TOKEN"},
		Session:  Session{OpenUTC: "03:45", CloseUTC: "10:00", PollMs: 500, IdlePollMs: 60000},
		Candle:   Candle{IntervalMin: 1, HistoryLimit: 200},
		Strategy: Strategy{
			Mode:             "sma",
			ShortPeriod:      5,
			LongPeriod:       20,
			OpenRangeMinutes: 15,
			VWAPEpsilon:      0.0005,
			TrapThreshold:    0.001,
		},
		Risk: Risk{
			TradeQuantity:      1,
			StopLossPercent:    0.25,
			TargetPercent:      0.5,
			TrailingStopPoints: 0.25,
			TickSize:           0.05,
		},
	}
}

// Load reads a YAML file from disk and hydrates a Config struct over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
