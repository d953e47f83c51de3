// Package modelfile reads the declarative YAML description of a causal-loop
// model and its run scenario, and lowers them onto the typed graph, schedule
// and analysis options. The file format expresses every structural field
// losslessly; semantic validation stays with graph.Build and the schedule,
// so a file error and an API error surface identically.
package modelfile

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/causaloop/causaloop/internal/analysis"
	"github.com/causaloop/causaloop/internal/graph"
	"github.com/causaloop/causaloop/internal/scenario"
)

// NodeSpec is one node entry in a model file.
type NodeSpec struct {
	ID      string  `json:"id" yaml:"id"`
	Kind    string  `json:"kind" yaml:"kind"`
	Initial float64 `json:"initial" yaml:"initial"`
}

// EdgeSpec is one edge entry in a model file. Gain defaults to 1 when
// omitted; polarity and delay must be explicit.
type EdgeSpec struct {
	From     string   `json:"from" yaml:"from"`
	To       string   `json:"to" yaml:"to"`
	Polarity int      `json:"polarity" yaml:"polarity"`
	Gain     *float64 `json:"gain,omitempty" yaml:"gain,omitempty"`
	Delay    int      `json:"delay" yaml:"delay"`
}

// Model is the parsed model file.
type Model struct {
	Name  string     `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`
	Edges []EdgeSpec `json:"edges" yaml:"edges"`
}

// StabilitySpec overrides the analysis defaults for a run.
type StabilitySpec struct {
	Epsilon float64 `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
	Window  int     `json:"window,omitempty" yaml:"window,omitempty"`
}

// InterventionSpec is one scheduled policy action in a run file. Exactly one
// of Delta or Override must be set.
type InterventionSpec struct {
	Node     string   `json:"node" yaml:"node"`
	At       int      `json:"at" yaml:"at"`
	Delta    *float64 `json:"delta,omitempty" yaml:"delta,omitempty"`
	Override *float64 `json:"override,omitempty" yaml:"override,omitempty"`
}

// RunSpec is the parsed run request: horizon, optional stability parameters
// and optional interventions. It may live in its own file or inline under a
// model file's "run" key.
type RunSpec struct {
	Horizon       int                `json:"horizon" yaml:"horizon"`
	Stability     *StabilitySpec     `json:"stability,omitempty" yaml:"stability,omitempty"`
	Interventions []InterventionSpec `json:"interventions,omitempty" yaml:"interventions,omitempty"`
}

// File is a complete model file, optionally carrying a run request.
type File struct {
	Model `json:",inline" yaml:",inline"`
	Run   *RunSpec `json:"run,omitempty" yaml:"run,omitempty"`
}

// Parse decodes a model file. Unknown fields are rejected so typos in hand-
// written files fail loudly instead of silently dropping a node or edge.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing model file: %w", err)
	}
	return &f, nil
}

// ParseFile reads and decodes the model file at path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Graph lowers the model onto a validated graph.
func (m *Model) Graph() (*graph.Graph, error) {
	nodes := make([]graph.Node, len(m.Nodes))
	for i, n := range m.Nodes {
		nodes[i] = graph.Node{ID: n.ID, Kind: graph.Kind(n.Kind), Initial: n.Initial}
	}
	edges := make([]graph.Edge, len(m.Edges))
	for i, e := range m.Edges {
		gain := 1.0
		if e.Gain != nil {
			gain = *e.Gain
		}
		edges[i] = graph.Edge{Source: e.From, Target: e.To, Polarity: e.Polarity, Gain: gain, Delay: e.Delay}
	}
	return graph.Build(nodes, edges)
}

// Schedule lowers the run's interventions onto a schedule validated against
// g. Entries carrying both delta and override, or neither, are rejected.
func (r *RunSpec) Schedule(g *graph.Graph) (*scenario.Schedule, error) {
	sched := scenario.NewSchedule(g)
	for i, iv := range r.Interventions {
		switch {
		case iv.Delta != nil && iv.Override != nil:
			return nil, fmt.Errorf("intervention %d on %q: delta and override are mutually exclusive", i, iv.Node)
		case iv.Delta == nil && iv.Override == nil:
			return nil, fmt.Errorf("intervention %d on %q: one of delta or override is required", i, iv.Node)
		case iv.Delta != nil:
			if err := sched.AddDelta(iv.Node, iv.At, *iv.Delta); err != nil {
				return nil, err
			}
		default:
			if err := sched.AddOverride(iv.Node, iv.At, *iv.Override); err != nil {
				return nil, err
			}
		}
	}
	return sched, nil
}

// AnalysisOptions returns the run's stability parameters, zero-valued fields
// deferring to the analysis defaults.
func (r *RunSpec) AnalysisOptions() analysis.Options {
	if r == nil || r.Stability == nil {
		return analysis.Options{}
	}
	return analysis.Options{Epsilon: r.Stability.Epsilon, Window: r.Stability.Window}
}
