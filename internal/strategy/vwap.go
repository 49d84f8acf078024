package strategy

import (
	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/market"
)

// VWAPDeviation recomputes the session VWAP from the candle history on every
// evaluation and signals when price crosses VWAP from beyond a deviation band.
type VWAPDeviation struct {
	epsilon float64
}

// NewVWAPDeviation builds the detector with the band width as a fraction of
// VWAP (e.g. 0.0005 for 0.05%).
func NewVWAPDeviation(epsilon float64) *VWAPDeviation {
	if epsilon <= 0 {
		epsilon = 0.0005
	}
	return &VWAPDeviation{epsilon: epsilon}
}

// Name returns the identifier for the detector implementation.
func (v *VWAPDeviation) Name() string { return "VWAPDeviation" }

// Evaluate signals BUY when price crosses above VWAP while the last close sat
// below the lower band, SELL on the mirror crossing.
func (v *VWAPDeviation) Evaluate(_ string, history []candle.Candle, price float64) market.Signal {
	if len(history) < 2 {
		return market.None
	}
	vwap, ok := sessionVWAP(history)
	if !ok {
		return market.None
	}

	prevClose := history[len(history)-1].Close
	lower := vwap * (1 - v.epsilon)
	upper := vwap * (1 + v.epsilon)

	switch {
	case price > vwap && prevClose < lower:
		return market.Buy
	case price < vwap && prevClose > upper:
		return market.Sell
	default:
		return market.None
	}
}

// sessionVWAP is the volume-weighted mean of closes, weighting each candle by
// its per-interval volume delta.
func sessionVWAP(history []candle.Candle) (float64, bool) {
	vols := candle.Volumes(history)
	var pv, vol float64
	for i, c := range history {
		pv += c.Close * float64(vols[i])
		vol += float64(vols[i])
	}
	if vol <= 0 {
		return 0, false
	}
	return pv / vol, true
}
