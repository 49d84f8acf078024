package candle

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/metrics"
)

// Book owns the live candle and closed-candle history for every instrument.
// Each instrument has its own slot with its own lock; ticks for different
// instruments never contend with each other.
type Book struct {
	interval time.Duration
	limit    int
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	slots map[string]*slot
}

type slot struct {
	mu      sync.Mutex
	live    *Candle
	history []Candle
}

// NewBook creates an aggregator producing candles of the given interval and
// retaining at most limit closed candles per instrument.
func NewBook(interval time.Duration, limit int, log zerolog.Logger) *Book {
	if interval <= 0 {
		interval = time.Minute
	}
	if limit <= 0 {
		limit = 200
	}
	return &Book{
		interval: interval,
		limit:    limit,
		log:      log,
		now:      time.Now,
		slots:    make(map[string]*slot),
	}
}

// Interval returns the aggregation interval.
func (b *Book) Interval() time.Duration { return b.interval }

func (b *Book) slotFor(symbol string) *slot {
	b.mu.RLock()
	s := b.slots[symbol]
	b.mu.RUnlock()
	if s != nil {
		return s
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if s = b.slots[symbol]; s == nil {
		s = &slot{}
		b.slots[symbol] = s
	}
	return s
}

// Ingest applies one tick. Safe to call concurrently with CloseThrough for the
// same instrument; the slot lock serializes the live-candle swap. Ticks whose
// timestamp falls before the live candle's interval are dropped, never
// back-applied to finalized history.
func (b *Book) Ingest(symbol string, price float64, cumVolume int64, ts time.Time) {
	if symbol == "" || price <= 0 {
		return
	}
	if ts.IsZero() {
		ts = b.now()
	}
	start := ts.UTC().Truncate(b.interval)

	s := b.slotFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.live == nil || s.live.Start.Before(start):
		b.finalizeLocked(symbol, s)
		s.live = &Candle{
			Symbol:    symbol,
			Start:     start,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			CumVolume: cumVolume,
		}
	case s.live.Start.Equal(start):
		if price > s.live.High {
			s.live.High = price
		}
		if price < s.live.Low {
			s.live.Low = price
		}
		s.live.Close = price
		// Feed reports session-cumulative volume; overwrite, do not sum.
		if cumVolume > s.live.CumVolume {
			s.live.CumVolume = cumVolume
		}
	default:
		metrics.StaleTicksTotal.WithLabelValues(symbol).Inc()
		b.log.Warn().
			Str("sym", symbol).
			Time("tick_ts", ts).
			Time("live_start", s.live.Start).
			Msg("dropping out-of-order tick older than live candle")
	}
	metrics.TicksTotal.WithLabelValues(symbol).Inc()
}

// CloseThrough finalizes the instrument's live candle if its interval ended
// before boundary. It returns the closed candle when one was finalized. The
// finalize and the history append happen under the slot lock, so a concurrent
// tick lands in either the old candle (before) or a fresh one (after), never
// lost.
func (b *Book) CloseThrough(symbol string, boundary time.Time) (Candle, bool) {
	s := b.slotFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live == nil || !s.live.Start.Before(boundary.UTC().Truncate(b.interval)) {
		return Candle{}, false
	}
	closed := *s.live
	b.finalizeLocked(symbol, s)
	s.live = nil
	return closed, true
}

// finalizeLocked appends the live candle to history, evicting the oldest entry
// past capacity. Duplicate or non-increasing interval starts are discarded so
// the history stays strictly ordered. Caller holds s.mu.
func (b *Book) finalizeLocked(symbol string, s *slot) {
	if s.live == nil {
		return
	}
	if n := len(s.history); n > 0 && !s.history[n-1].Start.Before(s.live.Start) {
		b.log.Warn().
			Str("sym", symbol).
			Time("start", s.live.Start).
			Msg("discarding candle that would break history ordering")
		return
	}
	s.history = append(s.history, *s.live)
	if len(s.history) > b.limit {
		s.history = s.history[1:]
	}
	metrics.CandlesClosedTotal.WithLabelValues(symbol).Inc()
	b.log.Debug().
		Str("sym", symbol).
		Time("start", s.live.Start).
		Float64("o", s.live.Open).
		Float64("h", s.live.High).
		Float64("l", s.live.Low).
		Float64("c", s.live.Close).
		Int64("vol", s.live.CumVolume).
		Msg("candle closed")
}

// History returns a copy of the instrument's closed candles, oldest first.
func (b *Book) History(symbol string) []Candle {
	s := b.slotFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Candle, len(s.history))
	copy(out, s.history)
	return out
}

// LastPrice reports the most recent traded price for the instrument: the live
// candle's close when one exists, otherwise the newest closed candle's close.
func (b *Book) LastPrice(symbol string) (float64, bool) {
	s := b.slotFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != nil {
		return s.live.Close, true
	}
	if n := len(s.history); n > 0 {
		return s.history[n-1].Close, true
	}
	return 0, false
}

// Symbols lists every instrument the book has seen, sorted for determinism.
func (b *Book) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.slots))
	for sym := range b.slots {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
