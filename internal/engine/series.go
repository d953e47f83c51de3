package engine

import "github.com/causaloop/causaloop/internal/graph"

// Series is the recorded output of a run: one row of node values and one
// row of per-edge delivered flows per tick, tick 0 included. Rows keep the
// graph's insertion order so the table is deterministic and directly
// comparable across runs.
type Series struct {
	NodeIDs []string
	Edges   []graph.Edge

	// Values[t][i] is the value of node NodeIDs[i] at tick t.
	Values [][]float64
	// Flows[t][j] is the contribution delivered across Edges[j] at tick t.
	Flows [][]float64

	nodeIdx map[string]int
}

func newSeries(g *graph.Graph, horizon int) *Series {
	nodes := g.Nodes()
	s := &Series{
		NodeIDs: make([]string, len(nodes)),
		Edges:   g.Edges(),
		Values:  make([][]float64, 0, horizon+1),
		Flows:   make([][]float64, 0, horizon+1),
		nodeIdx: make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		s.NodeIDs[i] = n.ID
		s.nodeIdx[n.ID] = i
	}
	return s
}

func (s *Series) record(st *State) {
	s.Values = append(s.Values, append([]float64(nil), st.values...))
	s.Flows = append(s.Flows, st.Flows())
}

// Ticks returns the last recorded tick number.
func (s *Series) Ticks() int { return len(s.Values) - 1 }

// Value returns the value of the given node at the given tick.
func (s *Series) Value(tick int, nodeID string) float64 {
	return s.Values[tick][s.nodeIdx[nodeID]]
}

// NodeIndex returns the column index of a node id.
func (s *Series) NodeIndex(nodeID string) (int, bool) {
	i, ok := s.nodeIdx[nodeID]
	return i, ok
}

// EdgeIndex returns the flow column for the edge with the given endpoints.
// Ordered pairs are unique per graph, so the pair identifies the edge.
func (s *Series) EdgeIndex(source, target string) (int, bool) {
	for j, e := range s.Edges {
		if e.Source == source && e.Target == target {
			return j, true
		}
	}
	return 0, false
}

// Flow returns the contribution delivered across the (source, target) edge
// at the given tick, or 0 if no such edge exists.
func (s *Series) Flow(tick int, source, target string) float64 {
	j, ok := s.EdgeIndex(source, target)
	if !ok {
		return 0
	}
	return s.Flows[tick][j]
}

// Final returns the node values at the last recorded tick, keyed by id.
func (s *Series) Final() map[string]float64 {
	out := make(map[string]float64, len(s.NodeIDs))
	last := s.Values[len(s.Values)-1]
	for i, id := range s.NodeIDs {
		out[id] = last[i]
	}
	return out
}
