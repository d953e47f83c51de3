package mcp

import (
	"context"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/causaloop/causaloop/internal/config"
	"github.com/causaloop/causaloop/internal/ratelimit"
	"github.com/causaloop/causaloop/internal/store"
)

const testModel = `
name: tourism
nodes:
  - id: tourists
    kind: stock
    initial: 100
  - id: congestion
    kind: auxiliary
    initial: 0
  - id: attractiveness
    kind: auxiliary
    initial: 50
edges:
  - from: tourists
    to: congestion
    polarity: 1
    gain: 0.01
    delay: 0
  - from: congestion
    to: attractiveness
    polarity: -1
    delay: 1
  - from: attractiveness
    to: tourists
    polarity: 1
    gain: 0.1
    delay: 2
run:
  horizon: 12
  interventions:
    - node: tourists
      at: 3
      delta: 20
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	runStore, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { runStore.Close() })

	return &Server{
		server:       sdk.NewServer(&sdk.Implementation{Name: "causaloop-test", Version: "0.0.0"}, nil),
		store:        runStore,
		cfg:          config.Default(),
		toolLimiters: ratelimit.NewToolLimiters(),
	}
}

func TestHandleValidate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleValidate(ctx, nil, ValidateInput{Model: testModel})
	if err != nil {
		t.Fatalf("handleValidate: %v", err)
	}
	if !out.Valid || out.Nodes != 3 || out.Edges != 3 {
		t.Errorf("output = %+v", out)
	}

	_, out, err = s.handleValidate(ctx, nil, ValidateInput{Model: `
nodes:
  - id: a
    kind: stock
edges:
  - from: a
    to: ghost
    polarity: 1
    delay: 0
`})
	if err != nil {
		t.Fatalf("handleValidate(invalid): %v", err)
	}
	if out.Valid || out.Error == "" {
		t.Errorf("invalid model reported valid: %+v", out)
	}
}

func TestHandleLoops(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleLoops(context.Background(), nil, LoopsInput{Model: testModel})
	if err != nil {
		t.Fatalf("handleLoops: %v", err)
	}
	if out.Count != 1 || out.Truncated {
		t.Fatalf("output = %+v", out)
	}
	loop := out.Loops[0]
	if loop.Classification != "balancing" {
		t.Errorf("classification = %s, want balancing", loop.Classification)
	}
	if loop.Length != 3 {
		t.Errorf("length = %d, want 3", loop.Length)
	}
	if !strings.HasPrefix(loop.ID, "attractiveness->") {
		t.Errorf("loop id not canonical: %s", loop.ID)
	}
}

func TestHandleSimulate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleSimulate(ctx, nil, SimulateInput{Model: testModel, Save: true})
	if err != nil {
		t.Fatalf("handleSimulate: %v", err)
	}
	if out.Ticks != 12 {
		t.Errorf("ticks = %d, want 12", out.Ticks)
	}
	if out.Verdict != "stable" && out.Verdict != "unstable" {
		t.Errorf("verdict = %q", out.Verdict)
	}
	if len(out.Loops) != 1 || out.Loops[0].Trend == "" {
		t.Errorf("loops = %+v", out.Loops)
	}
	if out.RunID == "" {
		t.Fatal("save requested but no run id returned")
	}

	run, table, err := s.store.GetRun(ctx, out.RunID)
	if err != nil {
		t.Fatalf("archived run not found: %v", err)
	}
	if run.Name != "tourism" || run.Horizon != 12 {
		t.Errorf("archived run = %+v", run)
	}
	if len(table.Values) != 13 {
		t.Errorf("archived %d ticks, want 13 rows", len(table.Values))
	}
}

func TestHandleSimulate_HorizonOverride(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleSimulate(context.Background(), nil, SimulateInput{Model: testModel, Horizon: 5})
	if err != nil {
		t.Fatalf("handleSimulate: %v", err)
	}
	if out.Ticks != 5 {
		t.Errorf("ticks = %d, want 5", out.Ticks)
	}
	if out.RunID != "" {
		t.Errorf("run archived without save: %s", out.RunID)
	}
}

func TestHandleSimulate_MissingHorizon(t *testing.T) {
	s := newTestServer(t)

	model := strings.Split(testModel, "run:")[0]
	if _, _, err := s.handleSimulate(context.Background(), nil, SimulateInput{Model: model}); err == nil {
		t.Error("missing horizon accepted")
	}
}

func TestHandleRuns(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, first, err := s.handleSimulate(ctx, nil, SimulateInput{Model: testModel, Save: true, Name: "first"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.handleSimulate(ctx, nil, SimulateInput{Model: testModel, Save: true, Name: "second"}); err != nil {
		t.Fatal(err)
	}

	_, out, err := s.handleRuns(ctx, nil, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}

	_, out, err = s.handleRuns(ctx, nil, RunsInput{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 {
		t.Errorf("limited count = %d, want 1", out.Count)
	}

	_, out, err = s.handleRuns(ctx, nil, RunsInput{Delete: first.RunID})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out.Deleted != first.RunID {
		t.Errorf("deleted = %q", out.Deleted)
	}

	_, out, err = s.handleRuns(ctx, nil, RunsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 {
		t.Errorf("count after delete = %d, want 1", out.Count)
	}
}
