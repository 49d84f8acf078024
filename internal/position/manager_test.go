package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/broker"
	"github.com/Gangu030/GANGU-PRO/internal/market"
	"github.com/Gangu030/GANGU-PRO/internal/risk"
)

type fakeBroker struct {
	mu     sync.Mutex
	calls  []broker.OrderIntent
	nextID int
	fail   bool
}

func (f *fakeBroker) PlaceOrder(_ context.Context, intent broker.OrderIntent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, intent)
	if f.fail {
		return "", errors.New("margin shortfall")
	}
	f.nextID++
	return fmt.Sprintf("ORD-%d", f.nextID), nil
}

func (f *fakeBroker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) Notify(text string) {
	c.mu.Lock()
	c.msgs = append(c.msgs, text)
	c.mu.Unlock()
}

func testParams() risk.Params {
	return risk.Params{
		TradeQuantity:      1,
		StopLossPercent:    0.25,
		TargetPercent:      0.5,
		TrailingStopPoints: 0.25,
		TickSize:           0.05,
	}
}

func TestOnSignalOpensPosition(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "NSE:SBIN-EQ", market.Buy, 800)

	if !mgr.Open("NSE:SBIN-EQ") {
		t.Fatalf("expected an open position")
	}
	if fb.callCount() != 1 {
		t.Fatalf("expected one order submission, got %d", fb.callCount())
	}
	intent := fb.calls[0]
	if intent.Side != broker.SideBuy || intent.Qty != 1 {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if intent.StopLossPts != 2.0 || intent.TargetPts != 4.0 {
		t.Fatalf("bracket offsets wrong: %+v", intent)
	}
}

func TestOnSignalNoOpWhileOpen(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "X", market.Buy, 100)
	mgr.OnSignal(context.Background(), "X", market.Sell, 101)
	mgr.OnSignal(context.Background(), "X", market.Buy, 102)

	if fb.callCount() != 1 {
		t.Fatalf("re-entry while open must not submit, got %d submissions", fb.callCount())
	}
	if mgr.OpenCount() != 1 {
		t.Fatalf("expected exactly one position, got %d", mgr.OpenCount())
	}
}

// gatedBroker parks PlaceOrder until released so tests can overlap calls.
type gatedBroker struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (g *gatedBroker) PlaceOrder(context.Context, broker.OrderIntent) (string, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	if n == 1 {
		close(g.entered)
	}
	<-g.release
	return fmt.Sprintf("ORD-%d", n), nil
}

func (g *gatedBroker) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestOnSignalConcurrentSignalsSubmitOnce(t *testing.T) {
	gb := &gatedBroker{entered: make(chan struct{}), release: make(chan struct{})}
	mgr := NewManager(gb, &captureNotifier{}, testParams(), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		mgr.OnSignal(context.Background(), "X", market.Buy, 100)
		close(done)
	}()
	<-gb.entered

	// Second signal lands while the first submission is still on the wire;
	// the reserved slot must swallow it without a second order.
	mgr.OnSignal(context.Background(), "X", market.Buy, 100)

	close(gb.release)
	<-done

	if gb.callCount() != 1 {
		t.Fatalf("concurrent signals for one symbol must submit once, got %d", gb.callCount())
	}
	if mgr.OpenCount() != 1 {
		t.Fatalf("expected exactly one position, got %d", mgr.OpenCount())
	}
}

func TestOnSignalFailureLeavesNoPosition(t *testing.T) {
	fb := &fakeBroker{fail: true}
	notifier := &captureNotifier{}
	mgr := NewManager(fb, notifier, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "X", market.Buy, 100)

	if mgr.Open("X") {
		t.Fatalf("failed submission must not create a position")
	}
	if len(notifier.msgs) != 1 {
		t.Fatalf("expected a failure notification, got %v", notifier.msgs)
	}

	// A fresh signal after the failure resolved may try again.
	fb.fail = false
	mgr.OnSignal(context.Background(), "X", market.Buy, 100)
	if !mgr.Open("X") {
		t.Fatalf("fresh signal after resolved failure should open")
	}
}

func TestOnSignalNonePriceGuard(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "X", market.None, 100)
	mgr.OnSignal(context.Background(), "X", market.Buy, 0)

	if fb.callCount() != 0 {
		t.Fatalf("expected no submissions, got %d", fb.callCount())
	}
}

func TestOrderUpdateExitRecordsTrade(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "X", market.Buy, 100)
	mgr.OnOrderUpdate(broker.OrderUpdate{OrderID: "ORD-1", Symbol: "X", Status: broker.StatusExited, Price: 104})

	if mgr.Open("X") {
		t.Fatalf("exit must destroy the position")
	}
	trades := mgr.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected one trade record, got %d", len(trades))
	}
	if trades[0].PnL != 4 {
		t.Fatalf("expected P&L 4, got %.2f", trades[0].PnL)
	}

	// Duplicate exit update is idempotent.
	mgr.OnOrderUpdate(broker.OrderUpdate{OrderID: "ORD-1", Symbol: "X", Status: broker.StatusExited, Price: 104})
	if len(mgr.Trades()) != 1 {
		t.Fatalf("duplicate exit created extra trade records")
	}
}

func TestOrderUpdateShortPnL(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "X", market.Sell, 100)
	mgr.OnOrderUpdate(broker.OrderUpdate{OrderID: "ORD-1", Status: broker.StatusExited, Price: 97})

	trades := mgr.Trades()
	if len(trades) != 1 || trades[0].PnL != 3 {
		t.Fatalf("expected short P&L 3, got %+v", trades)
	}
}

func TestOrderUpdateUnknownIgnored(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnOrderUpdate(broker.OrderUpdate{OrderID: "GHOST", Status: broker.StatusExited, Price: 10})
	if len(mgr.Trades()) != 0 || mgr.OpenCount() != 0 {
		t.Fatalf("unknown order id must be a no-op")
	}
}

func TestOrderUpdateRejectionReleasesSlot(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "X", market.Buy, 100)
	mgr.OnOrderUpdate(broker.OrderUpdate{OrderID: "ORD-1", Status: broker.StatusRejected})

	if mgr.Open("X") {
		t.Fatalf("rejection must release the position slot")
	}
	// The instrument may be traded again on a fresh signal.
	mgr.OnSignal(context.Background(), "X", market.Buy, 100)
	if !mgr.Open("X") {
		t.Fatalf("expected re-entry after rejection")
	}
}

func TestOrderUpdateFillAdoptsTradedPrice(t *testing.T) {
	fb := &fakeBroker{}
	mgr := NewManager(fb, &captureNotifier{}, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "X", market.Buy, 100)
	mgr.OnOrderUpdate(broker.OrderUpdate{OrderID: "ORD-1", Status: broker.StatusFilled, Price: 100.5})
	mgr.OnOrderUpdate(broker.OrderUpdate{OrderID: "ORD-1", Status: broker.StatusExited, Price: 102.5})

	trades := mgr.Trades()
	if len(trades) != 1 || trades[0].Entry != 100.5 || trades[0].PnL != 2 {
		t.Fatalf("expected entry 100.5 and P&L 2, got %+v", trades)
	}
}

func TestSquareOffClosesEverything(t *testing.T) {
	fb := &fakeBroker{}
	notifier := &captureNotifier{}
	mgr := NewManager(fb, notifier, testParams(), zerolog.Nop())

	mgr.OnSignal(context.Background(), "A", market.Buy, 100)
	mgr.OnSignal(context.Background(), "B", market.Sell, 200)

	mgr.SquareOff(context.Background(), map[string]float64{"A": 101, "B": 199})

	if mgr.OpenCount() != 0 {
		t.Fatalf("square-off left positions open: %d", mgr.OpenCount())
	}
	trades := mgr.Trades()
	if len(trades) != 2 {
		t.Fatalf("expected two trade records, got %d", len(trades))
	}
	var total float64
	for _, tr := range trades {
		total += tr.PnL
	}
	if total != 2 {
		t.Fatalf("expected combined P&L 2, got %.2f", total)
	}
}
