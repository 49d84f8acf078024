// Package position enforces the at-most-one-open-position-per-instrument
// lifecycle and tracks realized trades.
package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/broker"
	"github.com/Gangu030/GANGU-PRO/internal/market"
	"github.com/Gangu030/GANGU-PRO/internal/metrics"
	"github.com/Gangu030/GANGU-PRO/internal/notify"
	"github.com/Gangu030/GANGU-PRO/internal/risk"
)

// State is the lifecycle stage of a tracked position.
type State int8

const (
	// StateFilled means the entry order was confirmed and the position is live.
	StateFilled State = iota
	// StateExited means the position closed; it only appears in trade records.
	StateExited
)

// Position is a live holding for one instrument.
type Position struct {
	Symbol     string
	Side       broker.Side
	Qty        int
	EntryPrice float64
	OrderID    string
	State      State
	OpenedAt   time.Time
}

// TradeRecord is one completed round trip in the append-only trade log.
type TradeRecord struct {
	Symbol   string
	Side     broker.Side
	Qty      int
	Entry    float64
	Exit     float64
	PnL      float64
	OrderID  string
	OpenedAt time.Time
	ClosedAt time.Time
}

// Manager owns the position set. It is the only writer of position lifecycle
// state; the broker call runs outside the lock so a slow submission never
// stalls tick ingestion or the scheduler.
type Manager struct {
	client   broker.Client
	notifier notify.Notifier
	params   risk.Params
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	open    map[string]*Position
	pending map[string]struct{} // symbols with a submission in flight
	byOrder map[string]string   // order id -> symbol
	trades  []TradeRecord
}

// NewManager wires the lifecycle manager to its collaborators.
func NewManager(client broker.Client, notifier notify.Notifier, params risk.Params, log zerolog.Logger) *Manager {
	return &Manager{
		client:   client,
		notifier: notifier,
		params:   params,
		log:      log,
		now:      time.Now,
		open:     make(map[string]*Position),
		pending:  make(map[string]struct{}),
		byOrder:  make(map[string]string),
	}
}

// OnSignal reacts to a strategy signal for one instrument. A signal while a
// position is open is a documented no-op; a failed submission is reported and
// otherwise harmless to the caller.
func (m *Manager) OnSignal(ctx context.Context, symbol string, sig market.Signal, triggerPrice float64) {
	if sig == market.None || triggerPrice <= 0 {
		return
	}

	// Reserve the symbol slot before the network call so concurrent signals
	// for the same instrument can never submit twice.
	m.mu.Lock()
	if _, exists := m.open[symbol]; exists {
		m.mu.Unlock()
		m.log.Info().
			Str("sym", symbol).
			Str("signal", sig.String()).
			Msg("position already open, ignoring signal")
		return
	}
	if _, inflight := m.pending[symbol]; inflight {
		m.mu.Unlock()
		m.log.Info().
			Str("sym", symbol).
			Str("signal", sig.String()).
			Msg("submission already in flight, ignoring signal")
		return
	}
	m.pending[symbol] = struct{}{}
	m.mu.Unlock()

	side := broker.SideBuy
	if sig == market.Sell {
		side = broker.SideSell
	}
	bracket := m.params.BracketFor(triggerPrice)
	intent := broker.OrderIntent{
		Symbol:          symbol,
		Side:            side,
		Qty:             m.params.TradeQuantity,
		Kind:            broker.KindMarket,
		StopLossPts:     bracket.StopLossPts,
		TargetPts:       bracket.TargetPts,
		TrailingStopPts: bracket.TrailingPts,
		Tag:             "gangu-" + uuid.NewString()[:8],
	}

	// No lock held across the network call.
	orderID, err := m.client.PlaceOrder(ctx, intent)

	m.mu.Lock()
	delete(m.pending, symbol)
	if err != nil {
		m.mu.Unlock()
		metrics.OrderFailuresTotal.WithLabelValues(symbol).Inc()
		m.log.Error().Err(err).Str("sym", symbol).Msg("order submission failed")
		m.notifier.Notify(fmt.Sprintf("❌ Order failed for %s (%s x%d): %v", symbol, side, intent.Qty, err))
		return
	}
	m.open[symbol] = &Position{
		Symbol:     symbol,
		Side:       side,
		Qty:        intent.Qty,
		EntryPrice: triggerPrice,
		OrderID:    orderID,
		State:      StateFilled,
		OpenedAt:   m.now(),
	}
	m.byOrder[orderID] = symbol
	m.mu.Unlock()

	metrics.OrdersTotal.WithLabelValues(symbol, side.String()).Inc()
	m.log.Info().
		Str("sym", symbol).
		Str("side", side.String()).
		Float64("entry", triggerPrice).
		Str("order_id", orderID).
		Msg("position opened")
	m.notifier.Notify(fmt.Sprintf("✅ %s %s x%d @ %.2f (SL %.2f / TGT %.2f pts), order %s",
		side, symbol, intent.Qty, triggerPrice, bracket.StopLossPts, bracket.TargetPts, orderID))
}

// OnOrderUpdate applies an asynchronous broker event. Unknown order ids are
// ignored and duplicate updates are idempotent.
func (m *Manager) OnOrderUpdate(u broker.OrderUpdate) {
	m.mu.Lock()
	symbol, known := m.byOrder[u.OrderID]
	if !known {
		m.mu.Unlock()
		m.log.Debug().Str("order_id", u.OrderID).Msg("update for unknown order, ignoring")
		return
	}
	pos := m.open[symbol]
	if pos == nil {
		// Index entry without a live position: already exited, duplicate update.
		delete(m.byOrder, u.OrderID)
		m.mu.Unlock()
		return
	}

	switch u.Status {
	case broker.StatusFilled:
		// Entry confirmation after the synchronous success response. Adopt the
		// authoritative traded price; repeats are no-ops.
		if u.Price > 0 {
			pos.EntryPrice = u.Price
		}
		m.mu.Unlock()

	case broker.StatusRejected:
		delete(m.open, symbol)
		delete(m.byOrder, u.OrderID)
		m.mu.Unlock()
		m.log.Warn().Str("sym", symbol).Str("order_id", u.OrderID).Msg("broker rejected tracked order, releasing slot")
		m.notifier.Notify(fmt.Sprintf("⚠️ Order %s for %s rejected after submission", u.OrderID, symbol))

	case broker.StatusExited:
		record := m.closeLocked(pos, u)
		m.mu.Unlock()
		m.log.Info().
			Str("sym", symbol).
			Float64("exit", record.Exit).
			Float64("pnl", record.PnL).
			Msg("position exited")
		m.notifier.Notify(fmt.Sprintf("🏁 Exited %s %s x%d @ %.2f, P&L %.2f", pos.Side, symbol, pos.Qty, record.Exit, record.PnL))

	default:
		m.mu.Unlock()
		m.log.Debug().Str("status", u.Status).Str("order_id", u.OrderID).Msg("unhandled order update status")
	}
}

// closeLocked removes the position and appends a trade record. Caller holds m.mu.
func (m *Manager) closeLocked(pos *Position, u broker.OrderUpdate) TradeRecord {
	exit := u.Price
	if exit <= 0 {
		exit = pos.EntryPrice
	}
	pnl := (exit - pos.EntryPrice) * float64(pos.Qty) * float64(pos.Side)
	ts := u.Ts
	if ts.IsZero() {
		ts = m.now()
	}
	record := TradeRecord{
		Symbol:   pos.Symbol,
		Side:     pos.Side,
		Qty:      pos.Qty,
		Entry:    pos.EntryPrice,
		Exit:     exit,
		PnL:      pnl,
		OrderID:  pos.OrderID,
		OpenedAt: pos.OpenedAt,
		ClosedAt: ts,
	}
	pos.State = StateExited
	delete(m.open, pos.Symbol)
	delete(m.byOrder, pos.OrderID)
	m.trades = append(m.trades, record)
	return record
}

// SquareOff closes every open position at session end, marking exits at the
// provided last-known prices. Broker-side bracket legs square off the real
// orders; this records the book state and informs the channel.
func (m *Manager) SquareOff(ctx context.Context, prices map[string]float64) {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.open))
	for sym := range m.open {
		symbols = append(symbols, sym)
	}
	m.mu.Unlock()

	for _, sym := range symbols {
		m.mu.Lock()
		pos := m.open[sym]
		if pos == nil {
			m.mu.Unlock()
			continue
		}
		update := broker.OrderUpdate{
			OrderID: pos.OrderID,
			Symbol:  sym,
			Status:  broker.StatusExited,
			Price:   prices[sym],
			Ts:      m.now(),
		}
		record := m.closeLocked(pos, update)
		m.mu.Unlock()
		m.log.Info().Str("sym", sym).Float64("pnl", record.PnL).Msg("session square-off")
		m.notifier.Notify(fmt.Sprintf("🔔 Square-off %s %s x%d, P&L %.2f", pos.Side, sym, pos.Qty, record.PnL))
	}
}

// Open reports whether the instrument currently has a live position.
func (m *Manager) Open(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.open[symbol]
	return ok
}

// OpenCount returns the number of live positions.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// Trades returns a copy of the append-only trade log.
func (m *Manager) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.trades))
	copy(out, m.trades)
	return out
}
