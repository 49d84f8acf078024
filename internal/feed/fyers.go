package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gangu030/GANGU-PRO/internal/broker"
	"github.com/Gangu030/GANGU-PRO/internal/market"
)

type wsEnvelope struct {
	Type    string         `json:"t"`
	Ticks   []wsTick       `json:"v"`
	Update  *wsOrderUpdate `json:"d"`
	Message string         `json:"msg"`
}

type wsTick struct {
	Symbol    string  `json:"symbol"`
	LTP       float64 `json:"ltp"`
	VolToday  int64   `json:"vol_traded_today"`
	TradeTime int64   `json:"last_traded_time"` // epoch seconds; 0 when absent
}

// Broker order-update status codes: 2 traded, 5 rejected, 6 bracket leg exit.
type wsOrderUpdate struct {
	OrderID     string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Status      int     `json:"status"`
	TradedPrice float64 `json:"tradedPrice"`
	Qty         int     `json:"qty"`
	OrderTime   int64   `json:"orderDateTime"`
}

func (u *wsOrderUpdate) decode() (broker.OrderUpdate, bool) {
	var status string
	switch u.Status {
	case 2:
		status = broker.StatusFilled
	case 5:
		status = broker.StatusRejected
	case 6:
		status = broker.StatusExited
	default:
		return broker.OrderUpdate{}, false
	}
	var ts time.Time
	if u.OrderTime > 0 {
		ts = time.Unix(u.OrderTime, 0).UTC()
	}
	return broker.OrderUpdate{
		OrderID: u.OrderID,
		Symbol:  u.Symbol,
		Status:  status,
		Price:   u.TradedPrice,
		Qty:     u.Qty,
		Ts:      ts,
	}, true
}

func (f *Feed) runFyers(ctx context.Context, h Handlers) error {
	if len(f.symbols) == 0 {
		return fmt.Errorf("fyers feed requires at least one symbol")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeStream(ctx, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("data socket disconnected, retrying")
			f.notifier.Notify(fmt.Sprintf("⚠️ Data feed disconnected: %v", err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeStream(ctx context.Context, h Handlers) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	if f.auth != "" {
		header.Set("Authorization", f.auth)
	}
	conn, _, err := dialer.DialContext(ctx, f.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderFyers).Strs("symbols", f.symbols).Msg("connected market data feed")
	f.notifier.Notify("📡 Data feed connected")

	sub := map[string]any{"T": "SUB_DATA", "symbols": f.symbols}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	// Unblock the read loop when the context ends; gorilla reads only notice
	// closed connections, not canceled contexts.
	go func() {
		<-pingCtx.Done()
		conn.Close()
	}()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("feed ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env wsEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode feed message")
			continue
		}

		switch env.Type {
		case "df":
			for _, t := range env.Ticks {
				if t.Symbol == "" || t.LTP <= 0 {
					f.log.Warn().Str("sym", t.Symbol).Msg("malformed tick, dropping")
					continue
				}
				var ts time.Time
				if t.TradeTime > 0 {
					ts = time.Unix(t.TradeTime, 0).UTC()
				}
				if h.OnTick != nil {
					h.OnTick(market.Tick{Symbol: t.Symbol, Price: t.LTP, CumVolume: t.VolToday, Ts: ts})
				}
			}
		case "of":
			if env.Update == nil {
				continue
			}
			update, ok := env.Update.decode()
			if !ok {
				f.log.Debug().Int("status", env.Update.Status).Msg("ignoring unmapped order status")
				continue
			}
			if h.OnOrderUpdate != nil {
				h.OnOrderUpdate(update)
			}
		case "error":
			f.log.Error().Str("msg", env.Message).Msg("feed error frame")
			f.notifier.Notify(fmt.Sprintf("⚠️ Feed error: %s", env.Message))
		default:
			f.log.Debug().Str("type", env.Type).Msg("unhandled feed frame")
		}
	}
}
