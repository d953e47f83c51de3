// Package loops enumerates and classifies the feedback loops of a causal
// graph. Every elementary cycle (no repeated node except start=end) is
// discovered with an explicit-stack depth-first search and classified by the
// product of its edge polarities: reinforcing when positive, balancing when
// negative. Loops are derived, read-only artifacts; re-run Detect whenever
// the edge set changes.
package loops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/causaloop/causaloop/internal/graph"
)

// Classification labels a loop by its net polarity.
type Classification string

const (
	// Reinforcing loops have an even number of negative edges and amplify
	// perturbations.
	Reinforcing Classification = "reinforcing"
	// Balancing loops have an odd number of negative edges and damp
	// perturbations toward equilibrium.
	Balancing Classification = "balancing"
)

// DefaultMaxLoops is the safety bound on discovered loops when Options does
// not set one. It protects callers from pathological dense graphs.
const DefaultMaxLoops = 10000

// Loop is one elementary cycle in canonical form: its edge sequence starts
// at the lexicographically lowest node id on the cycle.
type Loop struct {
	Edges          []graph.Edge
	NetPolarity    int
	Classification Classification
}

// Nodes returns the node ids along the loop, one per edge, starting at the
// canonical (lowest-id) node.
func (l Loop) Nodes() []string {
	ids := make([]string, len(l.Edges))
	for i, e := range l.Edges {
		ids[i] = e.Source
	}
	return ids
}

// ID returns a stable human-readable identifier for the loop, e.g.
// "attractiveness->tourists->congestion->attractiveness".
func (l Loop) ID() string {
	if len(l.Edges) == 0 {
		return ""
	}
	parts := append(l.Nodes(), l.Edges[0].Source)
	return strings.Join(parts, "->")
}

// Len returns the number of edges in the loop.
func (l Loop) Len() int { return len(l.Edges) }

// Options bounds the search. Zero values select the defaults: MaxLength =
// node count (unrestricted for graphs of in-scope size) and MaxLoops =
// DefaultMaxLoops.
type Options struct {
	MaxLength int
	MaxLoops  int
}

// Result is the outcome of a detection pass. When Truncated is true the
// search hit the MaxLoops safety bound and Loops holds the loops found so
// far.
type Result struct {
	Loops     []Loop
	Truncated bool
}

// CycleLimitError reports that loop discovery exceeded the configured safety
// bound. The partial Result accompanying it remains usable.
type CycleLimitError struct {
	Limit int
}

func (e *CycleLimitError) Error() string {
	return fmt.Sprintf("loop discovery exceeded safety bound of %d loops", e.Limit)
}

// Detect enumerates all elementary cycles of g up to opts.MaxLength edges.
// The search is an iterative depth-first traversal with an explicit stack,
// never language-level recursion, so memory stays bounded and deterministic
// on large graphs. Cycles are discovered once per start node in insertion
// order, restricted to nodes at or after the start (Johnson-style ordering),
// and deduplicated by canonical edge set, so a loop is reported exactly once
// no matter which node the traversal entered it from.
//
// When more than opts.MaxLoops loops are found, Detect stops and returns the
// partial Result with Truncated set alongside a *CycleLimitError.
func Detect(g *graph.Graph, opts Options) (Result, error) {
	nodes := g.Nodes()
	edges := g.Edges()

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = len(nodes)
	}
	maxLoops := opts.MaxLoops
	if maxLoops <= 0 {
		maxLoops = DefaultMaxLoops
	}

	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n.ID] = i
	}
	out := make([][]int, len(nodes))
	for ei, e := range edges {
		si := idx[e.Source]
		out[si] = append(out[si], ei)
	}

	var result Result
	seen := make(map[string]bool)

	// frame tracks the iterative DFS position: which node we sit on and
	// which outgoing edge to try next.
	type frame struct {
		node int
		next int
	}

	for start := range nodes {
		stack := []frame{{node: start}}
		onPath := make([]bool, len(nodes))
		onPath[start] = true
		var pathEdges []int

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			descended := false

			for f.next < len(out[f.node]) {
				ei := out[f.node][f.next]
				f.next++
				ti := idx[edges[ei].Target]

				if ti == start {
					// Closing edge: the path plus this edge is an
					// elementary cycle through start.
					if len(pathEdges)+1 <= maxLen {
						loop := buildLoop(edges, append(append([]int(nil), pathEdges...), ei))
						key := loopKey(loop)
						if !seen[key] {
							seen[key] = true
							if len(result.Loops) >= maxLoops {
								result.Truncated = true
								return result, &CycleLimitError{Limit: maxLoops}
							}
							result.Loops = append(result.Loops, loop)
						}
					}
					continue
				}

				// Elementary cycles only: never continue through a node
				// already on the path. Nodes before the current start
				// belong to earlier starts' cycles.
				if ti < start || onPath[ti] || len(pathEdges)+2 > maxLen {
					continue
				}

				onPath[ti] = true
				pathEdges = append(pathEdges, ei)
				stack = append(stack, frame{node: ti})
				descended = true
				break
			}

			if descended {
				continue
			}
			if f.next >= len(out[f.node]) {
				onPath[f.node] = false
				stack = stack[:len(stack)-1]
				if len(pathEdges) > 0 {
					pathEdges = pathEdges[:len(pathEdges)-1]
				}
			}
		}
	}

	return result, nil
}

// buildLoop assembles a classified Loop from edge indices, rotated to its
// canonical form.
func buildLoop(edges []graph.Edge, cycle []int) Loop {
	seq := make([]graph.Edge, len(cycle))
	for i, ei := range cycle {
		seq[i] = edges[ei]
	}
	seq = canonicalize(seq)

	polarity := 1
	for _, e := range seq {
		polarity *= e.Polarity
	}
	cls := Reinforcing
	if polarity < 0 {
		cls = Balancing
	}
	return Loop{Edges: seq, NetPolarity: polarity, Classification: cls}
}

// canonicalize rotates the edge sequence so it starts at the
// lexicographically lowest node id on the cycle.
func canonicalize(seq []graph.Edge) []graph.Edge {
	lowest := 0
	for i, e := range seq {
		if e.Source < seq[lowest].Source {
			lowest = i
		}
	}
	rotated := make([]graph.Edge, 0, len(seq))
	rotated = append(rotated, seq[lowest:]...)
	rotated = append(rotated, seq[:lowest]...)
	return rotated
}

// loopKey builds the deduplication key: the sorted edge set, independent of
// traversal start.
func loopKey(l Loop) string {
	parts := make([]string, len(l.Edges))
	for i, e := range l.Edges {
		parts[i] = e.Source + ">" + e.Target
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}
