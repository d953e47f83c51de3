// Package graph defines the static structure of a causal-loop model: typed
// nodes and signed, delayed edges. A Graph is immutable after construction
// and safe to share across any number of concurrent simulation runs; any
// structural change means building a new Graph value.
package graph

// Kind describes how a node responds to incoming influence.
type Kind string

const (
	// KindStock accumulates change over time; it has memory across ticks.
	KindStock Kind = "stock"
	// KindAuxiliary is recomputed fresh each tick from current inputs.
	KindAuxiliary Kind = "auxiliary"
)

// Node is one modeled quantity (e.g. "volume-of-tourists"). Values are
// unit-less real indices, not physical quantities.
type Node struct {
	ID      string
	Kind    Kind
	Initial float64
}

// Edge is a directed causal influence from Source to Target.
//   - Polarity is +1 (same-direction effect) or -1 (opposite-direction).
//   - Gain is a non-negative magnitude multiplier.
//   - Delay is the number of ticks between a change at Source and its
//     effect at Target; 0 means same-tick propagation.
type Edge struct {
	Source   string
	Target   string
	Polarity int
	Gain     float64
	Delay    int
}

// Graph is the validated, immutable node/edge arena. Nodes and edges keep
// their insertion order; all queries iterate in that order so simulation
// sums are deterministic.
type Graph struct {
	nodes    []Node
	edges    []Edge
	nodeIdx  map[string]int
	outgoing map[string][]int
	incoming map[string][]int
}

// Build validates the node and edge sets and constructs a Graph. It returns
// a *ValidationError when an edge references an unknown node id, a node id
// or ordered (source,target) pair repeats, a polarity is outside {+1,-1}, a
// gain is negative, or a delay is negative. A Graph is never partially
// built: any validation failure returns a nil Graph.
func Build(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes:    make([]Node, len(nodes)),
		edges:    make([]Edge, len(edges)),
		nodeIdx:  make(map[string]int, len(nodes)),
		outgoing: make(map[string][]int),
		incoming: make(map[string][]int),
	}
	copy(g.nodes, nodes)
	copy(g.edges, edges)

	for i, n := range g.nodes {
		if n.ID == "" {
			return nil, &ValidationError{Field: "node.id", Issue: IssueEmptyID}
		}
		if _, dup := g.nodeIdx[n.ID]; dup {
			return nil, &ValidationError{NodeID: n.ID, Field: "node.id", Issue: IssueDuplicateNode}
		}
		if n.Kind != KindStock && n.Kind != KindAuxiliary {
			return nil, &ValidationError{NodeID: n.ID, Field: "node.kind", Issue: IssueInvalidKind}
		}
		g.nodeIdx[n.ID] = i
	}

	seen := make(map[[2]string]bool, len(g.edges))
	for i, e := range g.edges {
		if _, ok := g.nodeIdx[e.Source]; !ok {
			return nil, &ValidationError{Source: e.Source, Target: e.Target, Field: "edge.source", Issue: IssueUnknownNode}
		}
		if _, ok := g.nodeIdx[e.Target]; !ok {
			return nil, &ValidationError{Source: e.Source, Target: e.Target, Field: "edge.target", Issue: IssueUnknownNode}
		}
		pair := [2]string{e.Source, e.Target}
		if seen[pair] {
			return nil, &ValidationError{Source: e.Source, Target: e.Target, Field: "edge", Issue: IssueDuplicateEdge}
		}
		seen[pair] = true
		if e.Polarity != 1 && e.Polarity != -1 {
			return nil, &ValidationError{Source: e.Source, Target: e.Target, Field: "edge.polarity", Issue: IssueInvalidPolarity}
		}
		if e.Gain < 0 {
			return nil, &ValidationError{Source: e.Source, Target: e.Target, Field: "edge.gain", Issue: IssueNegativeGain}
		}
		if e.Delay < 0 {
			return nil, &ValidationError{Source: e.Source, Target: e.Target, Field: "edge.delay", Issue: IssueNegativeDelay}
		}
		g.outgoing[e.Source] = append(g.outgoing[e.Source], i)
		g.incoming[e.Target] = append(g.incoming[e.Target], i)
	}

	return g, nil
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Node returns the node with the given id, if present.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.nodeIdx[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// Outgoing returns the edges leaving the given node, in insertion order.
func (g *Graph) Outgoing(id string) []Edge {
	return g.edgesAt(g.outgoing[id])
}

// Incoming returns the edges entering the given node, in insertion order.
func (g *Graph) Incoming(id string) []Edge {
	return g.edgesAt(g.incoming[id])
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) edgesAt(idx []int) []Edge {
	out := make([]Edge, len(idx))
	for i, ei := range idx {
		out[i] = g.edges[ei]
	}
	return out
}
