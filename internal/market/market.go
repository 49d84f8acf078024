// Package market standardizes payloads shared between data ingestion and strategy layers.
package market

import "time"

// Tick models the essential pieces of market data consumed by the aggregator.
type Tick struct {
	Symbol    string
	Price     float64
	CumVolume int64 // session-cumulative traded volume reported by the feed
	Ts        time.Time
}

// Signal expresses the trading bias produced by a detector.
type Signal int8

const (
	// None means no actionable bias.
	None Signal = iota
	// Buy is a long entry signal.
	Buy
	// Sell is a short entry signal.
	Sell
)

// String returns the human-readable signal name used in logs and notifications.
func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}
