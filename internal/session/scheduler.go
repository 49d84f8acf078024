package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/market"
	"github.com/Gangu030/GANGU-PRO/internal/metrics"
	"github.com/Gangu030/GANGU-PRO/internal/notify"
	"github.com/Gangu030/GANGU-PRO/internal/position"
	"github.com/Gangu030/GANGU-PRO/internal/strategy"
)

// Scheduler drives the per-interval pipeline: close candles at the boundary,
// evaluate the strategy engine, dispatch signals to the position manager, and
// leave for good once the session closes.
type Scheduler struct {
	book      *candle.Book
	engine    *strategy.Engine
	positions *position.Manager
	notifier  notify.Notifier
	log       zerolog.Logger

	window   Window
	poll     time.Duration
	idlePoll time.Duration
	now      func() time.Time

	lastEval map[string]time.Time // newest candle start already evaluated
}

// NewScheduler wires the control loop to its collaborators.
func NewScheduler(book *candle.Book, engine *strategy.Engine, positions *position.Manager, notifier notify.Notifier, window Window, poll, idlePoll time.Duration, log zerolog.Logger) *Scheduler {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	if idlePoll <= 0 {
		idlePoll = time.Minute
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Scheduler{
		book:      book,
		engine:    engine,
		positions: positions,
		notifier:  notifier,
		window:    window,
		poll:      poll,
		idlePoll:  idlePoll,
		now:       time.Now,
		log:       log,
		lastEval:  make(map[string]time.Time),
	}
}

// Run polls until the session close boundary passes or the context ends.
// Before the open it sleeps at the coarse interval and does no work.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Dur("poll", s.poll).
		Msg("scheduler started")

	for {
		now := s.now()

		switch {
		case s.window.Closed(now):
			s.log.Info().Time("now", now).Msg("session close reached, squaring off and exiting")
			s.squareOff(ctx)
			s.notifier.Notify("🔔 Session closed, trading loop stopped")
			return nil

		case !s.window.Contains(now):
			if err := sleep(ctx, s.idlePoll); err != nil {
				return err
			}

		default:
			s.step(ctx, now)
			if err := sleep(ctx, s.poll); err != nil {
				return err
			}
		}
	}
}

// step runs one in-session poll. CloseThrough finalizes candles the poll
// reached first; a tick landing in a new interval finalizes the old candle
// inside Ingest before the poll gets there. Either way the closed history
// advances, so evaluation keys off the newest closed candle's start, not off
// who performed the finalize.
func (s *Scheduler) step(ctx context.Context, now time.Time) {
	boundary := now.UTC().Truncate(s.book.Interval())

	for _, sym := range s.book.Symbols() {
		s.book.CloseThrough(sym, boundary)

		history := s.book.History(sym)
		if len(history) == 0 {
			continue
		}
		newest := history[len(history)-1]
		if !newest.Start.After(s.lastEval[sym]) {
			continue
		}
		s.lastEval[sym] = newest.Start

		// Live candle close when the next interval already has ticks,
		// otherwise the candle we just finalized.
		price, havePrice := s.book.LastPrice(sym)
		if !havePrice {
			price = newest.Close
		}

		sig := s.engine.Evaluate(sym, history, price)
		if sig == market.None {
			continue
		}
		metrics.SignalsTotal.WithLabelValues(sym, sig.String()).Inc()
		s.log.Info().
			Str("sym", sym).
			Str("signal", sig.String()).
			Float64("price", price).
			Msg("strategy signal")
		s.positions.OnSignal(ctx, sym, sig, price)
	}
}

func (s *Scheduler) squareOff(ctx context.Context) {
	prices := make(map[string]float64)
	for _, sym := range s.book.Symbols() {
		if px, ok := s.book.LastPrice(sym); ok {
			prices[sym] = px
		}
	}
	s.positions.SquareOff(ctx, prices)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
