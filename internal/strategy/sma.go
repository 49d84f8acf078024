package strategy

import (
	"fmt"

	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/market"
)

// SMACrossover signals when the short-period simple moving average of closes
// crosses the long-period one. It is a pure function of the closed-candle
// history, so re-evaluating unchanged history never re-fires a consumed
// crossing.
type SMACrossover struct {
	short int
	long  int
}

// NewSMACrossover builds the detector, applying the classic 5/20 defaults for
// unset periods.
func NewSMACrossover(short, long int) *SMACrossover {
	if short <= 0 {
		short = 5
	}
	if long <= 0 {
		long = 20
	}
	if short >= long {
		short, long = long, short
	}
	return &SMACrossover{short: short, long: long}
}

// Name returns the configured identifier for logging.
func (s *SMACrossover) Name() string { return fmt.Sprintf("SMA_%d_%d", s.short, s.long) }

// Evaluate compares the current and previous SMA pairs. A crossing requires
// strict inequality on the newer side; equality counts as "not above".
func (s *SMACrossover) Evaluate(_ string, history []candle.Candle, _ float64) market.Signal {
	if len(history) < s.long+1 {
		return market.None
	}

	shortSMA := sma(history, s.short)
	longSMA := sma(history, s.long)
	prev := history[:len(history)-1]
	prevShort := sma(prev, s.short)
	prevLong := sma(prev, s.long)

	switch {
	case shortSMA > longSMA && prevShort <= prevLong:
		return market.Buy
	case shortSMA < longSMA && prevShort >= prevLong:
		return market.Sell
	default:
		return market.None
	}
}

func sma(history []candle.Candle, period int) float64 {
	var sum float64
	for _, c := range history[len(history)-period:] {
		sum += c.Close
	}
	return sum / float64(period)
}
