package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	StaleTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stale_ticks_total", Help: "Ticks dropped for arriving older than the live candle interval"},
		[]string{"symbol"},
	)
	CandlesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candles_closed_total", Help: "Candles finalized into history"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Non-flat signals emitted by the strategy engine"},
		[]string{"symbol", "side"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	OrderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_failures_total", Help: "Order submissions the broker did not confirm"},
		[]string{"symbol"},
	)
	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notifications_dropped_total", Help: "Notifications dropped because the outbound queue was full"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, StaleTicksTotal, CandlesClosedTotal,
		SignalsTotal, OrdersTotal, OrderFailuresTotal, NotificationsDropped,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
