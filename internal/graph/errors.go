package graph

import "fmt"

// Validation issue codes reported by Build.
const (
	IssueEmptyID         = "empty-id"
	IssueDuplicateNode   = "duplicate-node"
	IssueInvalidKind     = "invalid-kind"
	IssueUnknownNode     = "unknown-node"
	IssueDuplicateEdge   = "duplicate-edge"
	IssueInvalidPolarity = "invalid-polarity"
	IssueNegativeGain    = "negative-gain"
	IssueNegativeDelay   = "negative-delay"
)

// ValidationError describes why a graph could not be built. It carries the
// offending identifiers so callers can point at the broken model entry.
type ValidationError struct {
	NodeID string // offending node id, when the problem is a node
	Source string // offending edge endpoints, when the problem is an edge
	Target string
	Field  string // "node.kind", "edge.polarity", ...
	Issue  string // one of the Issue* codes
}

func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("invalid graph: %s %s (node %s)", e.Field, e.Issue, e.NodeID)
	}
	if e.Source != "" || e.Target != "" {
		return fmt.Sprintf("invalid graph: %s %s (edge %s->%s)", e.Field, e.Issue, e.Source, e.Target)
	}
	return fmt.Sprintf("invalid graph: %s %s", e.Field, e.Issue)
}
