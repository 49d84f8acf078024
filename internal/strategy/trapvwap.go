package strategy

import (
	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/market"
)

// trapLookback is how many recent closed candles define the breakout level the
// trap heuristic watches.
const trapLookback = 5

// TrapVWAP combines a breakout-failure heuristic with the VWAP-rejection test.
// Only the VWAP half decides the signal; the trap half annotates the log and
// never vetoes.
type TrapVWAP struct {
	trapThreshold float64
	vwap          *VWAPDeviation
	log           zerolog.Logger
}

// NewTrapVWAP builds the composite detector. trapThreshold is the maximum
// pierce past a recent extreme, as a fraction of that extreme, that still
// counts as a failed breakout.
func NewTrapVWAP(trapThreshold, vwapEpsilon float64, log zerolog.Logger) *TrapVWAP {
	if trapThreshold <= 0 {
		trapThreshold = 0.001
	}
	return &TrapVWAP{
		trapThreshold: trapThreshold,
		vwap:          NewVWAPDeviation(vwapEpsilon),
		log:           log,
	}
}

// Name returns the identifier for the detector implementation.
func (t *TrapVWAP) Name() string { return "TrapVWAP" }

// Evaluate returns the VWAP-rejection signal; a detected trap is advisory
// context only.
func (t *TrapVWAP) Evaluate(symbol string, history []candle.Candle, price float64) market.Signal {
	sig := t.vwap.Evaluate(symbol, history, price)

	if trap, kind := t.detectTrap(history); trap {
		t.log.Info().
			Str("sym", symbol).
			Str("trap", kind).
			Str("vwap_signal", sig.String()).
			Msg("breakout-failure pattern observed")
	}
	return sig
}

// detectTrap flags the last closed candle piercing the preceding candles' high
// (or low) by less than trapThreshold and then closing back inside the range.
func (t *TrapVWAP) detectTrap(history []candle.Candle) (bool, string) {
	if len(history) < trapLookback+1 {
		return false, ""
	}
	last := history[len(history)-1]
	window := history[len(history)-1-trapLookback : len(history)-1]

	high, low := window[0].High, window[0].Low
	for _, c := range window {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	if last.High > high && last.High <= high*(1+t.trapThreshold) && last.Close < high {
		return true, "bull_trap"
	}
	if last.Low < low && last.Low >= low*(1-t.trapThreshold) && last.Close > low {
		return true, "bear_trap"
	}
	return false, ""
}
