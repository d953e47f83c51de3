package simulation

import (
	"errors"
	"testing"

	"github.com/causaloop/causaloop/internal/analysis"
	"github.com/causaloop/causaloop/internal/engine"
	"github.com/causaloop/causaloop/internal/graph"
	"github.com/causaloop/causaloop/internal/loops"
	"github.com/causaloop/causaloop/internal/scenario"
)

// Runner orchestrates scenario experiments against the real pipeline.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario end to end: build the graph, detect loops,
// simulate the horizon with the scheduled interventions and analyze the
// resulting series. Any pipeline failure fails the test.
func (r *Runner) Run(sc Scenario) Result {
	r.t.Helper()

	g, err := graph.Build(sc.Nodes, sc.Edges)
	if err != nil {
		r.t.Fatalf("Run(%s): building graph: %v", sc.Name, err)
	}

	detected, err := loops.Detect(g, loops.Options{MaxLoops: sc.MaxLoops})
	var limitErr *loops.CycleLimitError
	if err != nil && !errors.As(err, &limitErr) {
		r.t.Fatalf("Run(%s): detecting loops: %v", sc.Name, err)
	}

	sched := scenario.NewSchedule(g)
	for _, iv := range sc.Interventions {
		if iv.Override != nil {
			err = sched.AddOverride(iv.Node, iv.At, *iv.Override)
		} else {
			err = sched.AddDelta(iv.Node, iv.At, iv.Delta)
		}
		if err != nil {
			r.t.Fatalf("Run(%s): scheduling intervention on %s: %v", sc.Name, iv.Node, err)
		}
	}

	series, err := engine.Run(g, sched, sc.Horizon)
	if err != nil {
		r.t.Fatalf("Run(%s): simulating: %v", sc.Name, err)
	}

	report := analysis.Analyze(series, detected.Loops, analysis.Options{
		Epsilon: sc.Epsilon,
		Window:  sc.Window,
	})

	return Result{
		Graph:  g,
		Series: series,
		Loops:  detected.Loops,
		Report: report,
	}
}
