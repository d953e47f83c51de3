// Package scenario schedules exogenous interventions (policy actions) on a
// causal graph. A Schedule is built before a run starts and consumed by the
// propagation core; each intervention applies exactly once at its tick and
// is then spent.
package scenario

import (
	"fmt"
	"sort"

	"github.com/causaloop/causaloop/internal/graph"
)

// Intervention is one scheduled exogenous change. Exactly one of Delta or
// Override is meaningful: Override replaces an auxiliary node's computed
// value for that tick, Delta adds to the node's value (the accumulated value
// for stocks).
type Intervention struct {
	Node     string
	AtTick   int
	Delta    float64
	Override *float64
	seq      int
}

// UnknownNodeError reports a schedule call against a node id absent from the
// graph.
type UnknownNodeError struct {
	NodeID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("schedule: unknown node %q", e.NodeID)
}

// PastTickError reports an intervention scheduled at or before the run's
// current tick.
type PastTickError struct {
	NodeID      string
	AtTick      int
	CurrentTick int
}

func (e *PastTickError) Error() string {
	return fmt.Sprintf("schedule: tick %d for node %q is not after current tick %d", e.AtTick, e.NodeID, e.CurrentTick)
}

// Schedule holds the pending interventions for one run, ordered by tick.
// Interventions at the same tick for the same node apply in submission
// order: the last override wins, deltas accumulate. A nil *Schedule is a
// valid empty schedule.
type Schedule struct {
	g       *graph.Graph
	items   []Intervention
	nextSeq int

	// now reports the bound run's current tick; before a run starts it
	// reports 0 (tick 0 is the initial state, so the earliest schedulable
	// tick is 1).
	now func() int
}

// NewSchedule creates an empty schedule validated against g.
func NewSchedule(g *graph.Graph) *Schedule {
	return &Schedule{g: g, now: func() int { return 0 }}
}

// Bind attaches the schedule to a live run's tick counter, so that
// scheduling calls made mid-run are checked against the run's progress.
func (s *Schedule) Bind(now func() int) {
	if now != nil {
		s.now = now
	}
}

// AddDelta schedules an additive change to a node at the given tick.
func (s *Schedule) AddDelta(nodeID string, atTick int, delta float64) error {
	return s.add(Intervention{Node: nodeID, AtTick: atTick, Delta: delta})
}

// AddOverride schedules a value override for an auxiliary node at the given
// tick. Stocks accumulate and cannot be overridden, only nudged with
// AddDelta; overriding one is rejected rather than coerced into a delta.
func (s *Schedule) AddOverride(nodeID string, atTick int, value float64) error {
	n, ok := s.g.Node(nodeID)
	if !ok {
		return &UnknownNodeError{NodeID: nodeID}
	}
	if n.Kind == graph.KindStock {
		return fmt.Errorf("schedule: node %q is a stock; use a delta intervention", nodeID)
	}
	v := value
	return s.add(Intervention{Node: nodeID, AtTick: atTick, Override: &v})
}

func (s *Schedule) add(iv Intervention) error {
	if !s.g.HasNode(iv.Node) {
		return &UnknownNodeError{NodeID: iv.Node}
	}
	if cur := s.now(); iv.AtTick <= cur {
		return &PastTickError{NodeID: iv.Node, AtTick: iv.AtTick, CurrentTick: cur}
	}
	iv.seq = s.nextSeq
	s.nextSeq++
	s.items = append(s.items, iv)
	// Stable order: by tick, then submission.
	sort.SliceStable(s.items, func(i, j int) bool {
		if s.items[i].AtTick != s.items[j].AtTick {
			return s.items[i].AtTick < s.items[j].AtTick
		}
		return s.items[i].seq < s.items[j].seq
	})
	return nil
}

// Pending returns the not-yet-applied interventions in application order.
func (s *Schedule) Pending() []Intervention {
	if s == nil {
		return nil
	}
	return append([]Intervention(nil), s.items...)
}

// Due removes and returns the interventions scheduled for exactly the given
// tick, in submission order. Returned interventions are spent: they are not
// reapplied on reset unless re-scheduled.
func (s *Schedule) Due(tick int) []Intervention {
	if s == nil || len(s.items) == 0 {
		return nil
	}
	var due []Intervention
	rest := s.items[:0]
	for _, iv := range s.items {
		if iv.AtTick == tick {
			due = append(due, iv)
		} else {
			rest = append(rest, iv)
		}
	}
	s.items = rest
	return due
}
