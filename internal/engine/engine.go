// Package engine advances a causal graph over discrete ticks. Each tick,
// signals flow along edges scaled by polarity and gain, delayed edges
// deliver through per-edge FIFO queues, stocks integrate their inflows and
// auxiliaries are recomputed from scratch. All arithmetic is plain float64
// with no clamping, and all sums iterate edges in the graph's insertion
// order, so two runs over the same graph, schedule and horizon produce
// bit-for-bit identical output.
package engine

import (
	"fmt"
	"strings"

	"github.com/causaloop/causaloop/internal/graph"
	"github.com/causaloop/causaloop/internal/scenario"
)

// InstantaneousCycleError reports a feedback cycle whose edges all have
// delay 0. Same-tick propagation through a cycle would need a simultaneous
// solve, which the engine refuses rather than guessing; the graph itself
// stays valid for a corrected delay configuration.
type InstantaneousCycleError struct {
	Nodes []string
}

func (e *InstantaneousCycleError) Error() string {
	return fmt.Sprintf("instantaneous cycle among zero-delay edges: %s", strings.Join(e.Nodes, ", "))
}

// emission is one queued signal on a delayed edge.
type emission struct {
	maturesAt int
	value     float64
}

// State is the mutable simulation state of one run: the tick counter,
// current node values and per-edge delay queues. It is owned by a single
// run; independent runs over the same (shared, immutable) graph each get
// their own State. A run may be stopped at any tick boundary and resumed
// later from the same State.
type State struct {
	g     *graph.Graph
	sched *scenario.Schedule

	nodes   []graph.Node
	edges   []graph.Edge
	nodeIdx map[string]int

	// incoming holds edge indices per target node, in edge insertion order.
	incoming [][]int
	// order is the stable topological order of the delay-0 sub-graph.
	order []int

	tick      int
	values    []float64
	queues    [][]emission
	lastFlows []float64
}

// NewState prepares a run at tick 0: every node at its initial value, all
// delay queues empty. It fails with *InstantaneousCycleError before any
// tick is computed if the delay-0 sub-graph contains a cycle. The schedule
// may be nil; when given, it is bound to this run's tick counter.
func NewState(g *graph.Graph, sched *scenario.Schedule) (*State, error) {
	s := &State{
		g:       g,
		sched:   sched,
		nodes:   g.Nodes(),
		edges:   g.Edges(),
		nodeIdx: make(map[string]int, g.NodeCount()),
	}
	for i, n := range s.nodes {
		s.nodeIdx[n.ID] = i
	}

	s.incoming = make([][]int, len(s.nodes))
	for ei, e := range s.edges {
		ti := s.nodeIdx[e.Target]
		s.incoming[ti] = append(s.incoming[ti], ei)
	}

	order, err := s.instantOrder()
	if err != nil {
		return nil, err
	}
	s.order = order

	s.values = make([]float64, len(s.nodes))
	for i, n := range s.nodes {
		s.values[i] = n.Initial
	}
	s.queues = make([][]emission, len(s.edges))
	s.lastFlows = make([]float64, len(s.edges))

	if sched != nil {
		sched.Bind(s.Tick)
	}
	return s, nil
}

// instantOrder computes a stable topological order of the nodes with
// respect to delay-0 edges only (Kahn's algorithm, ties broken by insertion
// order). Delayed edges impose no same-tick ordering.
func (s *State) instantOrder() ([]int, error) {
	n := len(s.nodes)
	indeg := make([]int, n)
	for _, e := range s.edges {
		if e.Delay == 0 {
			indeg[s.nodeIdx[e.Target]]++
		}
	}

	order := make([]int, 0, n)
	placed := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !placed[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var cyclic []string
			for i := 0; i < n; i++ {
				if !placed[i] && indeg[i] > 0 {
					cyclic = append(cyclic, s.nodes[i].ID)
				}
			}
			return nil, &InstantaneousCycleError{Nodes: cyclic}
		}
		placed[next] = true
		order = append(order, next)
		for _, e := range s.edges {
			if e.Delay == 0 && s.nodeIdx[e.Source] == next {
				indeg[s.nodeIdx[e.Target]]--
			}
		}
	}
	return order, nil
}

// Tick returns the current tick counter.
func (s *State) Tick() int { return s.tick }

// Values returns a snapshot of the current node values keyed by node id.
func (s *State) Values() map[string]float64 {
	out := make(map[string]float64, len(s.nodes))
	for i, n := range s.nodes {
		out[n.ID] = s.values[i]
	}
	return out
}

// Value returns the current value of one node.
func (s *State) Value(nodeID string) float64 {
	return s.values[s.nodeIdx[nodeID]]
}

// Step advances the state one tick. The sequence per tick t -> t+1:
//
//  1. every delayed edge emits the tick-t value of its source into its
//     queue, maturing delay ticks later;
//  2. contributions maturing at t+1 are collected per edge;
//  3. nodes are evaluated in the delay-0 topological order: delay-0 edges
//     read the just-updated source value, auxiliaries become the sum of
//     contributions maturing this tick (holding at their initial value when
//     nothing matures), stocks add the sum to their accumulated value;
//  4. interventions due at t+1 apply to their node before downstream
//     delay-0 edges read it: overrides replace an auxiliary's computed
//     value, deltas add;
//  5. the tick counter advances and matured queue entries retire.
func (s *State) Step() {
	t1 := s.tick + 1

	// Emit tick-t signals on delayed edges.
	for ei, e := range s.edges {
		if e.Delay > 0 {
			v := float64(e.Polarity) * e.Gain * s.values[s.nodeIdx[e.Source]]
			s.queues[ei] = append(s.queues[ei], emission{maturesAt: s.tick + e.Delay, value: v})
		}
	}

	// Collect matured deliveries. Queues are FIFO with strictly increasing
	// maturity, so only the head can be due.
	flows := make([]float64, len(s.edges))
	delivered := make([]bool, len(s.edges))
	for ei := range s.queues {
		if q := s.queues[ei]; len(q) > 0 && q[0].maturesAt == t1 {
			flows[ei] = q[0].value
			delivered[ei] = true
			s.queues[ei] = q[1:]
		}
	}

	due := s.sched.Due(t1)
	perNode := make(map[int][]scenario.Intervention)
	for _, iv := range due {
		ni := s.nodeIdx[iv.Node]
		perNode[ni] = append(perNode[ni], iv)
	}

	next := make([]float64, len(s.values))
	copy(next, s.values)

	for _, ni := range s.order {
		node := s.nodes[ni]
		sum := 0.0
		contribs := 0
		for _, ei := range s.incoming[ni] {
			e := s.edges[ei]
			if e.Delay == 0 {
				// Same-tick propagation from the already-final source.
				v := float64(e.Polarity) * e.Gain * next[s.nodeIdx[e.Source]]
				flows[ei] = v
				delivered[ei] = true
				sum += v
				contribs++
			} else if delivered[ei] {
				sum += flows[ei]
				contribs++
			}
		}

		var val float64
		switch {
		case node.Kind == graph.KindStock:
			val = s.values[ni] + sum
		case contribs == 0:
			// No memory and nothing arriving: auxiliaries hold at their
			// initial value.
			val = node.Initial
		default:
			val = sum
		}

		for _, iv := range perNode[ni] {
			if iv.Override != nil {
				val = *iv.Override
			} else {
				val += iv.Delta
			}
		}
		next[ni] = val
	}

	s.values = next
	s.lastFlows = flows
	s.tick = t1
}

// Flows returns the per-edge contribution delivered during the most recent
// Step, indexed like the graph's edge enumeration. Before the first Step
// all flows are zero.
func (s *State) Flows() []float64 {
	return append([]float64(nil), s.lastFlows...)
}

// Run simulates horizon ticks from a fresh State and records the full time
// series: tick 0 (the initial values) through tick horizon. A negative
// horizon is treated as zero.
func Run(g *graph.Graph, sched *scenario.Schedule, horizon int) (*Series, error) {
	st, err := NewState(g, sched)
	if err != nil {
		return nil, err
	}

	series := newSeries(g, horizon)
	series.record(st)
	for t := 0; t < horizon; t++ {
		st.Step()
		series.record(st)
	}
	return series, nil
}
