package strategy

import (
	"sync"

	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/market"
)

// OpeningRange captures the high/low of the first N candles of the session for
// each instrument and signals breakouts past that range. Once captured the
// range is immutable for the rest of the session.
type OpeningRange struct {
	rangeCandles int

	mu     sync.Mutex
	ranges map[string]orbRange
}

type orbRange struct {
	high float64
	low  float64
}

// NewOpeningRange builds the detector over the first rangeCandles closed
// candles (15 one-minute candles by default).
func NewOpeningRange(rangeCandles int) *OpeningRange {
	if rangeCandles <= 0 {
		rangeCandles = 15
	}
	return &OpeningRange{
		rangeCandles: rangeCandles,
		ranges:       make(map[string]orbRange),
	}
}

// Name returns the identifier for the detector implementation.
func (o *OpeningRange) Name() string { return "OpeningRange" }

// Evaluate returns None while the range is still forming, then BUY above the
// captured high and SELL below the captured low. Per-instrument range state
// never crosses symbols.
func (o *OpeningRange) Evaluate(symbol string, history []candle.Candle, price float64) market.Signal {
	o.mu.Lock()
	r, captured := o.ranges[symbol]
	if !captured {
		if len(history) < o.rangeCandles {
			o.mu.Unlock()
			return market.None
		}
		r = orbRange{high: history[0].High, low: history[0].Low}
		for _, c := range history[:o.rangeCandles] {
			if c.High > r.high {
				r.high = c.High
			}
			if c.Low < r.low {
				r.low = c.Low
			}
		}
		o.ranges[symbol] = r
	}
	o.mu.Unlock()

	switch {
	case price > r.high:
		return market.Buy
	case price < r.low:
		return market.Sell
	default:
		return market.None
	}
}
