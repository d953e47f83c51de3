package simulation

import (
	"github.com/causaloop/causaloop/internal/analysis"
	"github.com/causaloop/causaloop/internal/engine"
	"github.com/causaloop/causaloop/internal/graph"
	"github.com/causaloop/causaloop/internal/loops"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name          string
	Nodes         []graph.Node
	Edges         []graph.Edge
	Interventions []InterventionSpec
	Horizon       int

	// Epsilon and Window override the stability defaults when non-zero.
	Epsilon float64
	Window  int

	// MaxLoops overrides the loop discovery safety bound when non-zero.
	MaxLoops int
}

// InterventionSpec defines one scheduled exogenous change. Override, when
// non-nil, replaces the node's computed value at the tick; otherwise Delta is
// added.
type InterventionSpec struct {
	Node     string
	At       int
	Delta    float64
	Override *float64
}

// Result captures everything a scenario run produced.
type Result struct {
	Graph  *graph.Graph
	Series *engine.Series
	Loops  []loops.Loop
	Report *analysis.Report
}
