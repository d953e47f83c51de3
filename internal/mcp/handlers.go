package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/causaloop/causaloop/internal/analysis"
	"github.com/causaloop/causaloop/internal/engine"
	"github.com/causaloop/causaloop/internal/graph"
	"github.com/causaloop/causaloop/internal/loops"
	"github.com/causaloop/causaloop/internal/modelfile"
	"github.com/causaloop/causaloop/internal/ratelimit"
	"github.com/causaloop/causaloop/internal/store"
)

// registerTools registers all causaloop MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "causaloop_validate",
		Description: "Validate a causal-loop model description (node kinds, edge references, polarities, gains, delays)",
	}, s.handleValidate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "causaloop_loops",
		Description: "Enumerate the feedback loops of a model and classify each as reinforcing or balancing",
	}, s.handleLoops)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "causaloop_simulate",
		Description: "Simulate a model over a tick horizon with optional interventions and report stability and loop behavior",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "causaloop_runs",
		Description: "List or delete archived simulation runs",
	}, s.handleRuns)
}

// parseModel decodes a YAML model payload and lowers it onto a graph.
func parseModel(model string) (*modelfile.File, *graph.Graph, error) {
	f, err := modelfile.Parse(strings.NewReader(model))
	if err != nil {
		return nil, nil, err
	}
	g, err := f.Graph()
	if err != nil {
		return nil, nil, err
	}
	return f, g, nil
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, args ValidateInput) (*sdk.CallToolResult, ValidateOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "causaloop_validate"); err != nil {
		return nil, ValidateOutput{}, err
	}

	_, g, err := parseModel(args.Model)
	if err != nil {
		// Malformed models are the tool's domain, reported in the output
		// rather than as a protocol failure.
		return nil, ValidateOutput{
			Valid:   false,
			Error:   err.Error(),
			Message: fmt.Sprintf("Model is invalid: %v", err),
		}, nil
	}

	return nil, ValidateOutput{
		Valid:   true,
		Nodes:   g.NodeCount(),
		Edges:   g.EdgeCount(),
		Message: fmt.Sprintf("Model is valid: %d nodes, %d edges", g.NodeCount(), g.EdgeCount()),
	}, nil
}

func (s *Server) handleLoops(ctx context.Context, req *sdk.CallToolRequest, args LoopsInput) (*sdk.CallToolResult, LoopsOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "causaloop_loops"); err != nil {
		return nil, LoopsOutput{}, err
	}

	_, g, err := parseModel(args.Model)
	if err != nil {
		return nil, LoopsOutput{}, err
	}

	opts := s.cfg.DetectorOptions()
	if args.MaxLength > 0 {
		opts.MaxLength = args.MaxLength
	}

	result, err := loops.Detect(g, opts)
	var limitErr *loops.CycleLimitError
	if err != nil && !errors.As(err, &limitErr) {
		return nil, LoopsOutput{}, err
	}

	out := LoopsOutput{
		Loops:     summarizeLoops(result.Loops, nil),
		Count:     len(result.Loops),
		Truncated: result.Truncated,
	}
	if result.Truncated {
		out.Message = fmt.Sprintf("Found %d loops before hitting the safety bound; result is partial", out.Count)
	} else {
		out.Message = fmt.Sprintf("Found %d feedback loops", out.Count)
	}
	return nil, out, nil
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (*sdk.CallToolResult, SimulateOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "causaloop_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	f, g, err := parseModel(args.Model)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	run := f.Run
	if run == nil {
		run = &modelfile.RunSpec{}
	}
	horizon := run.Horizon
	if args.Horizon > 0 {
		horizon = args.Horizon
	}
	if horizon <= 0 {
		return nil, SimulateOutput{}, fmt.Errorf("horizon must be positive; set run.horizon in the model or pass horizon")
	}

	sched, err := run.Schedule(g)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	series, err := engine.Run(g, sched, horizon)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	detected, err := loops.Detect(g, s.cfg.DetectorOptions())
	var limitErr *loops.CycleLimitError
	if err != nil && !errors.As(err, &limitErr) {
		return nil, SimulateOutput{}, err
	}

	opts := run.AnalysisOptions()
	if opts.Epsilon == 0 && opts.Window == 0 {
		opts = s.cfg.AnalysisOptions()
	}
	report := analysis.Analyze(series, detected.Loops, opts)

	out := SimulateOutput{
		Ticks:   series.Ticks(),
		Verdict: string(report.Verdict),
		Final:   series.Final(),
		Steady:  report.SteadyState,
		Loops:   summarizeLoops(detected.Loops, report.Traces),
		Message: fmt.Sprintf("Simulated %d ticks: %s, %d loops", series.Ticks(), report.Verdict, len(detected.Loops)),
	}

	if args.Save {
		name := args.Name
		if name == "" {
			name = f.Name
		}
		rec := store.Run{
			ID:        store.NewRunID(),
			Name:      name,
			ModelHash: store.HashModel([]byte(args.Model)),
			Horizon:   horizon,
			Verdict:   string(report.Verdict),
			CreatedAt: time.Now().UTC(),
		}
		table := store.ValueTable{NodeIDs: series.NodeIDs, Values: series.Values}
		if err := s.store.SaveRun(ctx, rec, table); err != nil {
			return nil, SimulateOutput{}, fmt.Errorf("archiving run: %w", err)
		}
		out.RunID = rec.ID
		out.Message += fmt.Sprintf(", archived as %s", rec.ID)
	}

	return nil, out, nil
}

func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (*sdk.CallToolResult, RunsOutput, error) {
	if err := ratelimit.CheckLimit(s.toolLimiters, "causaloop_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	if args.Delete != "" {
		if err := s.store.DeleteRun(ctx, args.Delete); err != nil {
			return nil, RunsOutput{}, err
		}
		return nil, RunsOutput{
			Deleted: args.Delete,
			Message: fmt.Sprintf("Deleted run %s", args.Delete),
		}, nil
	}

	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, RunsOutput{}, err
	}
	if args.Limit > 0 && len(runs) > args.Limit {
		runs = runs[:args.Limit]
	}

	out := RunsOutput{Count: len(runs), Message: fmt.Sprintf("%d archived runs", len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, RunSummary{
			ID:        r.ID,
			Name:      r.Name,
			Horizon:   r.Horizon,
			Verdict:   r.Verdict,
			CreatedAt: r.CreatedAt,
		})
	}
	return nil, out, nil
}

// summarizeLoops converts detected loops to their tool representation,
// annotating each with its observed trend when traces are available.
func summarizeLoops(detected []loops.Loop, traces []analysis.LoopTrace) []LoopSummary {
	out := make([]LoopSummary, len(detected))
	for i, lp := range detected {
		out[i] = LoopSummary{
			ID:             lp.ID(),
			Nodes:          lp.Nodes(),
			Length:         lp.Len(),
			Classification: string(lp.Classification),
		}
		if i < len(traces) {
			out[i].Trend = string(traces[i].Trend)
		}
	}
	return out
}
