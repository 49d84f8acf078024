// Binary replay feeds a recorded tick capture through the full pipeline
// without touching a real broker, then prints the resulting trade log.
// Captures are JSONL, one tick per line:
//
//	{"symbol":"NSE:SBIN-EQ","price":812.4,"cum_volume":120403,"ts":"2024-06-03T04:01:07Z"}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/broker"
	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/config"
	"github.com/Gangu030/GANGU-PRO/internal/market"
	"github.com/Gangu030/GANGU-PRO/internal/metrics"
	"github.com/Gangu030/GANGU-PRO/internal/notify"
	"github.com/Gangu030/GANGU-PRO/internal/position"
	"github.com/Gangu030/GANGU-PRO/internal/risk"
	"github.com/Gangu030/GANGU-PRO/internal/strategy"
	"github.com/Gangu030/GANGU-PRO/internal/util"
)

type capturedTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	CumVolume int64     `json:"cum_volume"`
	Ts        time.Time `json:"ts"`
}

// fillBroker accepts every order so replays exercise the same position
// lifecycle as live runs without touching a venue.
type fillBroker struct{}

func (fillBroker) PlaceOrder(context.Context, broker.OrderIntent) (string, error) {
	return "replay-" + uuid.NewString()[:8], nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	ticksPath := flag.String("ticks", "", "path to JSONL tick capture")
	flag.Parse()

	log := util.NewLogger("info")
	if *ticksPath == "" {
		log.Fatal().Msg("-ticks is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Msg("config unavailable, replaying with defaults")
		def := config.Default()
		cfg = &def
	}
	log = util.NewLogger(cfg.App.LogLevel)

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

	manager := position.NewManager(fillBroker{}, notify.Noop{}, risk.Params{
		TradeQuantity:      cfg.Risk.TradeQuantity,
		StopLossPercent:    cfg.Risk.StopLossPercent,
		TargetPercent:      cfg.Risk.TargetPercent,
		TrailingStopPoints: cfg.Risk.TrailingStopPoints,
		TickSize:           cfg.Risk.TickSize,
	}, util.Component(log, "position"))

	file, err := os.Open(*ticksPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open capture")
	}
	defer file.Close()

	ctx := context.Background()
	var ticks, boundaries int
	lastBoundary := time.Time{}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var tk capturedTick
		if err := json.Unmarshal(line, &tk); err != nil {
			log.Warn().Err(err).Msg("skipping malformed capture line")
			continue
		}

		boundary := tk.Ts.UTC().Truncate(interval)
		if !lastBoundary.IsZero() && boundary.After(lastBoundary) {
			evaluate(ctx, book, engine, manager, boundary, log)
			boundaries++
		}
		lastBoundary = boundary

		book.Ingest(tk.Symbol, tk.Price, tk.CumVolume, tk.Ts)
		ticks++
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("read capture")
	}

	// Final boundary plus end-of-capture square-off.
	if !lastBoundary.IsZero() {
		evaluate(ctx, book, engine, manager, lastBoundary.Add(interval), log)
	}
	prices := make(map[string]float64)
	for _, sym := range book.Symbols() {
		if px, ok := book.LastPrice(sym); ok {
			prices[sym] = px
		}
	}
	manager.SquareOff(ctx, prices)

	trades := manager.Trades()
	fmt.Printf("replayed %d ticks across %d interval boundaries\n", ticks, boundaries)
	fmt.Printf("%-18s %-5s %4s %10s %10s %10s\n", "SYMBOL", "SIDE", "QTY", "ENTRY", "EXIT", "PNL")
	var total float64
	for _, tr := range trades {
		fmt.Printf("%-18s %-5s %4d %10.2f %10.2f %10.2f\n",
			tr.Symbol, tr.Side.String(), tr.Qty, tr.Entry, tr.Exit, tr.PnL)
		total += tr.PnL
	}
	fmt.Printf("trades=%d total_pnl=%.2f\n", len(trades), total)
}

// evaluate closes candles through the boundary and dispatches any signals,
// mirroring one live scheduler step.
func evaluate(ctx context.Context, book *candle.Book, engine *strategy.Engine, manager *position.Manager, boundary time.Time, log zerolog.Logger) {
	for _, sym := range book.Symbols() {
		closed, ok := book.CloseThrough(sym, boundary)
		if !ok {
			continue
		}
		history := book.History(sym)
		price, havePrice := book.LastPrice(sym)
		if !havePrice {
			price = closed.Close
		}
		sig := engine.Evaluate(sym, history, price)
		if sig == market.None {
			continue
		}
		metrics.SignalsTotal.WithLabelValues(sym, sig.String()).Inc()
		log.Info().
			Str("sym", sym).
			Str("signal", sig.String()).
			Float64("price", price).
			Time("boundary", boundary).
			Msg("replay signal")
		manager.OnSignal(ctx, sym, sig, price)
	}
}
