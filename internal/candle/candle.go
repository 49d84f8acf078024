// Package candle aggregates raw ticks into fixed-interval OHLCV candles per
// instrument and keeps a bounded history of closed candles.
package candle

import "time"

// Candle summarizes price action over one aggregation interval. CumVolume is
// the session-cumulative volume reported by the feed as of the candle's last
// tick, not a per-interval delta.
type Candle struct {
	Symbol    string
	Start     time.Time // interval start, UTC, truncated to the interval
	Open      float64
	High      float64
	Low       float64
	Close     float64
	CumVolume int64
}

// Volumes converts a run of closed candles' cumulative counters into
// per-candle deltas. The first candle keeps its full counter since the session
// baseline is unknown; negative deltas (counter reset) clamp to zero.
func Volumes(history []Candle) []int64 {
	out := make([]int64, len(history))
	for i, c := range history {
		if i == 0 {
			out[i] = c.CumVolume
			continue
		}
		d := c.CumVolume - history[i-1].CumVolume
		if d < 0 {
			d = 0
		}
		out[i] = d
	}
	return out
}
