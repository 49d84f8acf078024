// Package strategy contains the signal detectors and the engine policy that
// turns closed-candle history into trade signals.
package strategy

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Gangu030/GANGU-PRO/internal/candle"
	"github.com/Gangu030/GANGU-PRO/internal/market"
)

// Detector defines behaviour shared by every signal detector. Evaluate sees a
// read-only snapshot of closed candles plus the current traded price and
// returns a directional signal. Insufficient history is None, never an error.
type Detector interface {
	Name() string
	Evaluate(symbol string, history []candle.Candle, price float64) market.Signal
}

// Params expresses tunable knobs required by detector constructors.
type Params struct {
	ShortPeriod      int
	LongPeriod       int
	OpenRangeMinutes int
	IntervalMin      int
	VWAPEpsilon      float64
	TrapThreshold    float64
}

// Engine runs the configured detector set for an instrument. In composite mode
// every detector must agree on the same non-None signal before it is emitted.
type Engine struct {
	detectors []Detector
	composite bool
	log       zerolog.Logger
}

// NewEngine wraps an explicit detector set.
func NewEngine(detectors []Detector, composite bool, log zerolog.Logger) *Engine {
	return &Engine{detectors: detectors, composite: composite, log: log}
}

// Detectors exposes the active set, mainly for logging at startup.
func (e *Engine) Detectors() []Detector { return e.detectors }

// Evaluate applies the active detector set to one instrument.
func (e *Engine) Evaluate(symbol string, history []candle.Candle, price float64) market.Signal {
	if len(e.detectors) == 0 {
		return market.None
	}
	if !e.composite {
		return e.detectors[0].Evaluate(symbol, history, price)
	}

	agreed := market.None
	for i, d := range e.detectors {
		sig := d.Evaluate(symbol, history, price)
		if sig == market.None {
			return market.None
		}
		if i == 0 {
			agreed = sig
			continue
		}
		if sig != agreed {
			return market.None
		}
	}
	return agreed
}

// Build returns an engine matching the configured strategy mode.
func Build(mode string, params Params, log zerolog.Logger) *Engine {
	rangeCandles := params.OpenRangeMinutes
	if params.IntervalMin > 1 {
		rangeCandles = params.OpenRangeMinutes / params.IntervalMin
	}

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "vwap":
		return NewEngine([]Detector{NewVWAPDeviation(params.VWAPEpsilon)}, false, log)
	case "orb":
		return NewEngine([]Detector{NewOpeningRange(rangeCandles)}, false, log)
	case "trap_vwap", "gy":
		return NewEngine([]Detector{NewTrapVWAP(params.TrapThreshold, params.VWAPEpsilon, log)}, false, log)
	case "vwap_orb":
		return NewEngine([]Detector{
			NewVWAPDeviation(params.VWAPEpsilon),
			NewOpeningRange(rangeCandles),
		}, true, log)
	case "", "sma", "sma_crossover":
		return NewEngine([]Detector{NewSMACrossover(params.ShortPeriod, params.LongPeriod)}, false, log)
	default:
		log.Warn().Str("mode", mode).Msg("unknown strategy mode, falling back to sma")
		return NewEngine([]Detector{NewSMACrossover(params.ShortPeriod, params.LongPeriod)}, false, log)
	}
}
