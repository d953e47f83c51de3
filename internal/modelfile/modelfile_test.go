package modelfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/causaloop/causaloop/internal/graph"
	"github.com/causaloop/causaloop/internal/scenario"
)

const tourismModel = `
name: tourism
nodes:
  - id: tourists
    kind: stock
    initial: 100
  - id: congestion
    kind: auxiliary
    initial: 0
edges:
  - from: tourists
    to: congestion
    polarity: 1
    gain: 0.01
    delay: 0
  - from: congestion
    to: tourists
    polarity: -1
    delay: 2
run:
  horizon: 24
  stability:
    epsilon: 0.001
    window: 5
  interventions:
    - node: tourists
      at: 6
      delta: 40
`

func TestParseModel(t *testing.T) {
	f, err := Parse(strings.NewReader(tourismModel))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Name != "tourism" {
		t.Errorf("Name = %q", f.Name)
	}
	if len(f.Nodes) != 2 || len(f.Edges) != 2 {
		t.Fatalf("parsed %d nodes, %d edges", len(f.Nodes), len(f.Edges))
	}

	g, err := f.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	edges := g.Edges()
	if edges[0].Gain != 0.01 {
		t.Errorf("explicit gain = %v, want 0.01", edges[0].Gain)
	}
	// Omitted gain defaults to 1.
	if edges[1].Gain != 1 {
		t.Errorf("defaulted gain = %v, want 1", edges[1].Gain)
	}
	if edges[1].Polarity != -1 || edges[1].Delay != 2 {
		t.Errorf("edge 1 = %+v", edges[1])
	}
}

func TestParseRun(t *testing.T) {
	f, err := Parse(strings.NewReader(tourismModel))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Run == nil {
		t.Fatal("Run is nil")
	}
	if f.Run.Horizon != 24 {
		t.Errorf("Horizon = %d", f.Run.Horizon)
	}

	opts := f.Run.AnalysisOptions()
	if opts.Epsilon != 0.001 || opts.Window != 5 {
		t.Errorf("analysis options = %+v", opts)
	}

	g, err := f.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	sched, err := f.Run.Schedule(g)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if pending := sched.Pending(); len(pending) != 1 || pending[0].AtTick != 6 || pending[0].Delta != 40 {
		t.Errorf("pending = %+v", pending)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	_, err := Parse(strings.NewReader(`
nodes:
  - id: a
    kind: stock
    initail: 3
edges: []
`))
	if err == nil {
		t.Fatal("misspelled field accepted")
	}
}

func TestInvalidKindSurfacesValidation(t *testing.T) {
	f, err := Parse(strings.NewReader(`
nodes:
  - id: a
    kind: flow
edges: []
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = f.Graph()
	var ve *graph.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *graph.ValidationError", err)
	}
	if ve.Issue != graph.IssueInvalidKind {
		t.Errorf("issue = %q", ve.Issue)
	}
}

func TestInterventionExclusivity(t *testing.T) {
	g, err := graph.Build(
		[]graph.Node{{ID: "a", Kind: graph.KindAuxiliary, Initial: 0}},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}

	d, o := 1.0, 2.0
	both := RunSpec{Interventions: []InterventionSpec{{Node: "a", At: 1, Delta: &d, Override: &o}}}
	if _, err := both.Schedule(g); err == nil {
		t.Error("delta+override accepted")
	}
	neither := RunSpec{Interventions: []InterventionSpec{{Node: "a", At: 1}}}
	if _, err := neither.Schedule(g); err == nil {
		t.Error("empty intervention accepted")
	}

	ghost := RunSpec{Interventions: []InterventionSpec{{Node: "ghost", At: 1, Delta: &d}}}
	_, err = ghost.Schedule(g)
	var une *scenario.UnknownNodeError
	if !errors.As(err, &une) {
		t.Errorf("error = %v, want *scenario.UnknownNodeError", err)
	}
}
