package candle

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testLog = zerolog.Nop()

func minuteBook() *Book {
	return NewBook(time.Minute, 5, testLog)
}

func TestIngestBuildsOHLC(t *testing.T) {
	book := minuteBook()
	base := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)

	book.Ingest("NSE:SBIN-EQ", 100, 10, base.Add(5*time.Second))
	book.Ingest("NSE:SBIN-EQ", 105, 25, base.Add(40*time.Second))

	closed, ok := book.CloseThrough("NSE:SBIN-EQ", base.Add(time.Minute))
	if !ok {
		t.Fatalf("expected a closed candle")
	}
	if closed.Open != 100 || closed.High != 105 || closed.Low != 100 || closed.Close != 105 {
		t.Fatalf("unexpected OHLC: %+v", closed)
	}
	if closed.CumVolume != 25 {
		t.Fatalf("expected cumulative volume overwrite to 25, got %d", closed.CumVolume)
	}
	if !closed.Start.Equal(base) {
		t.Fatalf("unexpected interval start: %s", closed.Start)
	}
}

func TestIngestRollsToNewInterval(t *testing.T) {
	book := minuteBook()
	base := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)

	book.Ingest("X", 10, 1, base.Add(10*time.Second))
	book.Ingest("X", 12, 2, base.Add(70*time.Second)) // next minute; finalizes the first

	hist := book.History("X")
	if len(hist) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(hist))
	}
	if hist[0].Close != 10 {
		t.Fatalf("expected first candle close 10, got %.2f", hist[0].Close)
	}
	price, ok := book.LastPrice("X")
	if !ok || price != 12 {
		t.Fatalf("expected live price 12, got %.2f", price)
	}
}

func TestIngestDropsStaleTick(t *testing.T) {
	book := minuteBook()
	base := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)

	book.Ingest("X", 10, 1, base.Add(70*time.Second))
	book.Ingest("X", 99, 2, base.Add(5*time.Second)) // strictly older interval

	price, ok := book.LastPrice("X")
	if !ok || price != 10 {
		t.Fatalf("stale tick must not mutate live candle, got price %.2f", price)
	}
	if len(book.History("X")) != 0 {
		t.Fatalf("stale tick must not finalize anything")
	}
}

func TestIngestMissingTimestampUsesWallClock(t *testing.T) {
	book := minuteBook()
	fixed := time.Date(2024, 6, 3, 5, 30, 15, 0, time.UTC)
	book.now = func() time.Time { return fixed }

	book.Ingest("X", 50, 1, time.Time{})

	price, ok := book.LastPrice("X")
	if !ok || price != 50 {
		t.Fatalf("expected live candle from wall-clock tick")
	}
	closed, ok := book.CloseThrough("X", fixed.Add(time.Minute))
	if !ok || !closed.Start.Equal(fixed.Truncate(time.Minute)) {
		t.Fatalf("unexpected interval start: %+v", closed)
	}
}

func TestLateTickAfterCloseStartsFreshCandle(t *testing.T) {
	book := minuteBook()
	base := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)

	book.Ingest("X", 10, 1, base.Add(10*time.Second))
	closed, ok := book.CloseThrough("X", base.Add(time.Minute))
	if !ok {
		t.Fatalf("expected close")
	}

	// Tick lands after the scheduler finalized the prior minute but before any
	// next-minute tick arrived.
	book.Ingest("X", 11, 2, base.Add(61*time.Second))

	hist := book.History("X")
	if len(hist) != 1 || hist[0].Close != closed.Close {
		t.Fatalf("finalized history entry mutated: %+v", hist)
	}
	price, ok := book.LastPrice("X")
	if !ok || price != 11 {
		t.Fatalf("expected fresh live candle at 11, got %.2f", price)
	}
}

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	book := NewBook(time.Minute, 3, testLog)
	base := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		book.Ingest("X", float64(100+i), int64(i), ts)
		book.CloseThrough("X", ts.Add(time.Minute))
	}

	hist := book.History("X")
	if len(hist) != 3 {
		t.Fatalf("history exceeded capacity: %d", len(hist))
	}
	if hist[0].Open != 103 || hist[2].Open != 105 {
		t.Fatalf("expected oldest-first eviction, got %+v", hist)
	}
	for i := 1; i < len(hist); i++ {
		if !hist[i-1].Start.Before(hist[i].Start) {
			t.Fatalf("history starts not strictly increasing")
		}
	}
}

func TestCloseThroughNoopWhenCurrent(t *testing.T) {
	book := minuteBook()
	base := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)

	book.Ingest("X", 10, 1, base.Add(10*time.Second))
	if _, ok := book.CloseThrough("X", base); ok {
		t.Fatalf("must not close the still-live interval")
	}
	if _, ok := book.CloseThrough("X", base.Add(30*time.Second)); ok {
		t.Fatalf("must not close mid-interval")
	}
}

func TestConcurrentIngestAndClose(t *testing.T) {
	book := minuteBook()
	base := time.Date(2024, 6, 3, 4, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			minute := time.Duration(i/50) * time.Minute
			book.Ingest("X", 100+float64(i%50), int64(i), base.Add(minute).Add(time.Duration(i%50)*time.Second))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			book.CloseThrough("X", base.Add(time.Duration(i+1)*time.Minute))
		}
	}()
	wg.Wait()

	hist := book.History("X")
	for i := 1; i < len(hist); i++ {
		if !hist[i-1].Start.Before(hist[i].Start) {
			t.Fatalf("concurrent use corrupted history ordering")
		}
	}
}

func TestVolumesDeltas(t *testing.T) {
	hist := []Candle{
		{CumVolume: 100},
		{CumVolume: 180},
		{CumVolume: 180},
		{CumVolume: 150}, // counter reset
	}
	got := Volumes(hist)
	want := []int64{100, 80, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("volume delta %d: got %d want %d", i, got[i], want[i])
		}
	}
}
