// Package session runs the trading-session control loop: window gating,
// candle closure, strategy evaluation, and order dispatch sequencing.
package session

import (
	"fmt"
	"time"
)

// Window is a daily trading window in UTC time-of-day offsets from midnight.
type Window struct {
	Open  time.Duration
	Close time.Duration
}

// ParseWindow builds a window from "HH:MM" strings.
func ParseWindow(open, close string) (Window, error) {
	o, err := parseClock(open)
	if err != nil {
		return Window{}, fmt.Errorf("open time: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return Window{}, fmt.Errorf("close time: %w", err)
	}
	if c <= o {
		return Window{}, fmt.Errorf("close %q not after open %q", close, open)
	}
	return Window{Open: o, Close: c}, nil
}

func parseClock(s string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func sinceMidnight(t time.Time) time.Duration {
	t = t.UTC()
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// Contains reports whether t falls inside the trading window.
func (w Window) Contains(t time.Time) bool {
	d := sinceMidnight(t)
	return d >= w.Open && d < w.Close
}

// Closed reports whether t is at or past the session close.
func (w Window) Closed(t time.Time) bool {
	return sinceMidnight(t) >= w.Close
}
