// Binary bot runs one live trading session: tick aggregation, strategy
// evaluation, and bracket-order dispatch until the session window closes.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Gangu030/GANGU-PRO/internal/broker"
	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/config"
	"github.com/Gangu030/GANGU-PRO/internal/feed"
	"github.com/Gangu030/GANGU-PRO/internal/market"
	"github.com/Gangu030/GANGU-PRO/internal/metrics"
	"github.com/Gangu030/GANGU-PRO/internal/notify"
	"github.com/Gangu030/GANGU-PRO/internal/position"
	"github.com/Gangu030/GANGU-PRO/internal/risk"
	"github.com/Gangu030/GANGU-PRO/internal/session"
	"github.com/Gangu030/GANGU-PRO/internal/strategy"
	"github.com/Gangu030/GANGU-PRO/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	_ = godotenv.Load() // best-effort

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.Enabled {
		token := os.Getenv(cfg.Telegram.BotTokenEnv)
		if token == "" {
			log.Warn().Str("env", cfg.Telegram.BotTokenEnv).Msg("telegram enabled but token missing, notifications disabled")
		} else {
			tg := notify.NewTelegram(token, cfg.Telegram.ChatID, util.Component(log, "notify"))
			defer tg.Close()
			notifier = tg
		}
	}

	accessToken := os.Getenv(cfg.Broker.AccessTokenEnv)
	if accessToken == "" {
		log.Fatal().Str("env", cfg.Broker.AccessTokenEnv).Msg("broker access token missing")
	}
	client := broker.NewRESTClient(cfg.Broker.BaseURL, cfg.Broker.AppID, accessToken, util.Component(log, "broker"))

	interval := time.Duration(cfg.Candle.IntervalMin) * time.Minute
	book := candle.NewBook(interval, cfg.Candle.HistoryLimit, util.Component(log, "candle"))

	engine := strategy.Build(cfg.Strategy.Mode, strategy.Params{
		ShortPeriod:      cfg.Strategy.ShortPeriod,
		LongPeriod:       cfg.Strategy.LongPeriod,
		OpenRangeMinutes: cfg.Strategy.OpenRangeMinutes,
		IntervalMin:      cfg.Candle.IntervalMin,
		VWAPEpsilon:      cfg.Strategy.VWAPEpsilon,
		TrapThreshold:    cfg.Strategy.TrapThreshold,
	}, util.Component(log, "strategy"))
	for _, d := range engine.Detectors() {
		log.Info().Str("detector", d.Name()).Msg("detector active")
	}

	params := risk.Params{
		TradeQuantity:      cfg.Risk.TradeQuantity,
		StopLossPercent:    cfg.Risk.StopLossPercent,
		TargetPercent:      cfg.Risk.TargetPercent,
		TrailingStopPoints: cfg.Risk.TrailingStopPoints,
		TickSize:           cfg.Risk.TickSize,
	}
	manager := position.NewManager(client, notifier, params, util.Component(log, "position"))

	auth := cfg.Broker.AppID + ":" + accessToken
	stream := feed.New(cfg.Feed.Provider, cfg.Feed.WSURL, auth, cfg.Feed.Symbols, util.Component(log, "feed"), notifier)
	go func() {
		err := stream.Run(ctx, feed.Handlers{
			OnTick: func(tk market.Tick) {
				book.Ingest(tk.Symbol, tk.Price, tk.CumVolume, tk.Ts)
			},
			OnOrderUpdate: manager.OnOrderUpdate,
		})
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	window, err := session.ParseWindow(cfg.Session.OpenUTC, cfg.Session.CloseUTC)
	if err != nil {
		log.Fatal().Err(err).Msg("session window")
	}
	sched := session.NewScheduler(
		book, engine, manager, notifier, window,
		time.Duration(cfg.Session.PollMs)*time.Millisecond,
		time.Duration(cfg.Session.IdlePollMs)*time.Millisecond,
		util.Component(log, "scheduler"),
	)

	notifier.Notify("🚀 " + cfg.App.Name + " session started")
	if err := sched.Run(ctx); err != nil {
		log.Info().Err(err).Msg("scheduler interrupted")
	}

	for _, trade := range manager.Trades() {
		log.Info().
			Str("sym", trade.Symbol).
			Str("side", trade.Side.String()).
			Float64("entry", trade.Entry).
			Float64("exit", trade.Exit).
			Float64("pnl", trade.PnL).
			Msg("session trade")
	}
	log.Info().Msg("shutting down")
}
