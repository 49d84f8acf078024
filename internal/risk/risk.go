// Package risk derives bracket-order protection legs from an entry trigger.
package risk

import "math"

// Params sizes every entry. Stop and target are percents of the trigger price
// converted to point offsets; the trailing stop is a fixed point constant.
type Params struct {
	TradeQuantity      int
	StopLossPercent    float64
	TargetPercent      float64
	TrailingStopPoints float64
	TickSize           float64
}

// Bracket holds the point offsets attached to an entry order. Offsets are
// distances from the entry price, not absolute prices.
type Bracket struct {
	StopLossPts float64
	TargetPts   float64
	TrailingPts float64
}

// BracketFor computes the protection offsets for an entry at trigger,
// rounding each leg to the instrument tick.
func (p Params) BracketFor(trigger float64) Bracket {
	return Bracket{
		StopLossPts: RoundToTick(trigger*p.StopLossPercent/100, p.TickSize),
		TargetPts:   RoundToTick(trigger*p.TargetPercent/100, p.TickSize),
		TrailingPts: RoundToTick(p.TrailingStopPoints, p.TickSize),
	}
}

// RoundToTick snaps a price distance to the nearest multiple of tick.
func RoundToTick(v, tick float64) float64 {
	if tick <= 0 {
		return v
	}
	return math.Round(v/tick) * tick
}
