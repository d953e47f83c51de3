// Package analysis derives diagnostics from a completed run: a stability
// verdict with the settled values, and a per-loop contribution trace showing
// whether each feedback loop actually amplified or damped over the run.
package analysis

import (
	"math"

	"github.com/causaloop/causaloop/internal/engine"
	"github.com/causaloop/causaloop/internal/loops"
)

// Verdict is the stability outcome of a run.
type Verdict string

const (
	VerdictStable   Verdict = "stable"
	VerdictUnstable Verdict = "unstable"
)

// Trend describes how a loop's signal magnitude evolved over the run.
type Trend string

const (
	TrendAmplifying Trend = "amplifying"
	TrendDamping    Trend = "damping"
	TrendSteady     Trend = "steady"
)

// Default stability parameters, used when Options leaves them zero.
const (
	DefaultEpsilon = 1e-6
	DefaultWindow  = 10
)

// Options configures the stability check: values must settle within a
// relative tolerance Epsilon over a trailing window of Window ticks.
type Options struct {
	Epsilon float64
	Window  int
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	return o
}

// LoopTrace is the contribution trace of one feedback loop: the per-tick
// signal magnitude observed on the loop's leading edge, and the trend it
// exhibits. A reinforcing loop behaving as drawn shows an amplifying trend,
// a balancing loop a damping one.
type LoopTrace struct {
	Loop       loops.Loop
	Magnitudes []float64
	Trend      Trend
}

// Report is the full analysis of one run.
type Report struct {
	Verdict Verdict

	// SteadyState holds the settled node values, keyed by id. Nil when the
	// verdict is unstable.
	SteadyState map[string]float64

	Traces []LoopTrace
}

// Analyze inspects a recorded series against the detected loops. The series
// must contain at least Window ticks for a stable verdict; shorter runs are
// reported unstable because settling cannot be attested.
func Analyze(series *engine.Series, detected []loops.Loop, opts Options) *Report {
	opts = opts.withDefaults()

	r := &Report{Verdict: VerdictStable}
	if !settled(series, opts) {
		r.Verdict = VerdictUnstable
	} else {
		r.SteadyState = series.Final()
	}

	for _, lp := range detected {
		r.Traces = append(r.Traces, traceLoop(series, lp, opts.Epsilon))
	}
	return r
}

// settled reports whether every node's value stays within a relative spread
// of epsilon over the trailing window.
func settled(series *engine.Series, opts Options) bool {
	last := series.Ticks()
	first := last - opts.Window
	if first < 0 {
		return false
	}
	for i := range series.NodeIDs {
		lo, hi := math.Inf(1), math.Inf(-1)
		for t := first; t <= last; t++ {
			v := series.Values[t][i]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		scale := math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
		if hi-lo > opts.Epsilon*scale {
			return false
		}
	}
	return true
}

// traceLoop samples the signal magnitude on the loop's leading edge at each
// tick after tick 0 (queues start empty, so tick 0 carries no flow).
func traceLoop(series *engine.Series, lp loops.Loop, epsilon float64) LoopTrace {
	lead := lp.Edges[0]
	mags := make([]float64, 0, series.Ticks())
	for t := 1; t <= series.Ticks(); t++ {
		mags = append(mags, math.Abs(series.Flow(t, lead.Source, lead.Target)))
	}
	return LoopTrace{Loop: lp, Magnitudes: mags, Trend: classifyTrend(mags, epsilon)}
}

// classifyTrend compares the mean magnitude of the second half of the trace
// against the first half. The halves keep a relative margin of epsilon so a
// flat trace with float noise still reads as steady.
func classifyTrend(mags []float64, epsilon float64) Trend {
	if len(mags) < 2 {
		return TrendSteady
	}
	mid := len(mags) / 2
	early := mean(mags[:mid])
	late := mean(mags[mid:])

	scale := math.Max(1, math.Max(early, late))
	switch {
	case late-early > epsilon*scale:
		return TrendAmplifying
	case early-late > epsilon*scale:
		return TrendDamping
	default:
		return TrendSteady
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
