// Package broker handles order submission and the order-update wire format.
package broker

import (
	"context"
	"time"
)

// Side enumerates order directions using the broker's wire convention.
type Side int

const (
	// SideBuy indicates a long order.
	SideBuy Side = 1
	// SideSell indicates a short order.
	SideSell Side = -1
)

// String returns the human-readable side used in logs and notifications.
func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// Kind enumerates order types using the broker's wire codes.
type Kind int

const (
	// KindMarket is an at-market entry.
	KindMarket Kind = 1
	// KindLimit is a limit entry.
	KindLimit Kind = 2
)

// OrderIntent is the ephemeral request handed to PlaceOrder. Stop, target and
// trailing values are point offsets from the entry price, not absolute prices.
type OrderIntent struct {
	Symbol          string
	Side            Side
	Qty             int
	Kind            Kind
	LimitPrice      float64 // 0 for market
	StopLossPts     float64
	TargetPts       float64
	TrailingStopPts float64
	Tag             string
}

// Client is the synchronous order-placement collaborator. Implementations
// return the broker-assigned order id on confirmed success; every other
// response or transport failure is an error meaning "order not placed".
type Client interface {
	PlaceOrder(ctx context.Context, intent OrderIntent) (string, error)
}

// Order update statuses after wire decoding.
const (
	StatusFilled   = "FILLED"
	StatusRejected = "REJECTED"
	StatusExited   = "EXITED"
)

// OrderUpdate is an asynchronous fill/rejection/exit notification keyed by
// order id.
type OrderUpdate struct {
	OrderID string
	Symbol  string
	Status  string
	Price   float64
	Qty     int
	Ts      time.Time
}
