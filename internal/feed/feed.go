// Package feed hosts the market-data and order-update stream connectors.
package feed

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/broker"
	"github.com/Gangu030/GANGU-PRO/internal/market"
	"github.com/Gangu030/GANGU-PRO/internal/notify"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderFyers streams live ticks and order updates from the brokerage data socket.
	ProviderFyers = "fyers"
)

// Handlers are the push callbacks a feed drives. Both run on the feed's read
// goroutine and must not block.
type Handlers struct {
	OnTick        func(market.Tick)
	OnOrderUpdate func(broker.OrderUpdate)
}

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider string
	url      string
	auth     string
	symbols  []string
	log      zerolog.Logger
	notifier notify.Notifier
}

// New constructs a feed backed by the requested provider.
func New(provider, url, auth string, symbols []string, log zerolog.Logger, notifier notify.Notifier) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		url:      url,
		auth:     auth,
		log:      log,
		notifier: notifier,
	}
	f.setSymbols(symbols)
	return f
}

func (f *Feed) setSymbols(symbols []string) {
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

// Run pushes events into the handlers until the context is canceled.
func (f *Feed) Run(ctx context.Context, h Handlers) error {
	switch f.provider {
	case ProviderFyers:
		return f.runFyers(ctx, h)
	default:
		return f.runStub(ctx, h)
	}
}

func (f *Feed) runStub(ctx context.Context, h Handlers) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	px := 100.0
	var vol int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			vol += 10
			for _, s := range f.symbols {
				if h.OnTick != nil {
					h.OnTick(market.Tick{Symbol: s, Price: px, CumVolume: vol, Ts: ts})
				}
			}
		}
	}
}
