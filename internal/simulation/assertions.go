package simulation

import (
	"math"
	"testing"

	"github.com/causaloop/causaloop/internal/analysis"
	"github.com/causaloop/causaloop/internal/loops"
)

// AssertValueAt asserts that a node's value at a tick is within tol of want.
func AssertValueAt(t *testing.T, result Result, nodeID string, tick int, want, tol float64) {
	t.Helper()
	got := result.Series.Value(tick, nodeID)
	if math.Abs(got-want) > tol {
		t.Errorf("AssertValueAt: %s at tick %d = %.6f, want %.6f ± %.4f", nodeID, tick, got, want, tol)
	}
}

// AssertVerdict asserts the run's stability verdict.
func AssertVerdict(t *testing.T, result Result, want analysis.Verdict) {
	t.Helper()
	if result.Report.Verdict != want {
		t.Errorf("AssertVerdict: verdict = %s, want %s", result.Report.Verdict, want)
	}
}

// AssertLoopCount asserts the number of discovered feedback loops.
func AssertLoopCount(t *testing.T, result Result, want int) {
	t.Helper()
	if len(result.Loops) != want {
		ids := make([]string, len(result.Loops))
		for i, lp := range result.Loops {
			ids[i] = lp.ID()
		}
		t.Errorf("AssertLoopCount: found %d loops, want %d: %v", len(result.Loops), want, ids)
	}
}

// AssertLoopClass asserts that the loop with the given canonical id exists
// and carries the given classification.
func AssertLoopClass(t *testing.T, result Result, loopID string, want loops.Classification) {
	t.Helper()
	for _, lp := range result.Loops {
		if lp.ID() == loopID {
			if lp.Classification != want {
				t.Errorf("AssertLoopClass: loop %s is %s, want %s", loopID, lp.Classification, want)
			}
			return
		}
	}
	t.Errorf("AssertLoopClass: loop %s not found", loopID)
}

// AssertLoopTrend asserts the observed trend of the loop with the given
// canonical id.
func AssertLoopTrend(t *testing.T, result Result, loopID string, want analysis.Trend) {
	t.Helper()
	for _, tr := range result.Report.Traces {
		if tr.Loop.ID() == loopID {
			if tr.Trend != want {
				t.Errorf("AssertLoopTrend: loop %s trend = %s, want %s", loopID, tr.Trend, want)
			}
			return
		}
	}
	t.Errorf("AssertLoopTrend: loop %s not traced", loopID)
}

// AssertBounded asserts that a node's value stays within [min, max] at every
// tick from afterTick on.
func AssertBounded(t *testing.T, result Result, nodeID string, min, max float64, afterTick int) {
	t.Helper()
	for tick := afterTick; tick <= result.Series.Ticks(); tick++ {
		v := result.Series.Value(tick, nodeID)
		if v < min || v > max {
			t.Errorf("AssertBounded: %s at tick %d = %.6f, outside [%.4f, %.4f]", nodeID, tick, v, min, max)
		}
	}
}

// AssertSettles asserts that a node's final values stay within tol of want
// over the last window ticks.
func AssertSettles(t *testing.T, result Result, nodeID string, want, tol float64, window int) {
	t.Helper()
	last := result.Series.Ticks()
	if last < window {
		t.Fatalf("AssertSettles: run of %d ticks shorter than window %d", last, window)
	}
	for tick := last - window; tick <= last; tick++ {
		v := result.Series.Value(tick, nodeID)
		if math.Abs(v-want) > tol {
			t.Errorf("AssertSettles: %s at tick %d = %.6f, want %.6f ± %.4f", nodeID, tick, v, want, tol)
		}
	}
}
