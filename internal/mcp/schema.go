// Package mcp provides an MCP (Model Context Protocol) server for causaloop.
package mcp

import "time"

// ValidateInput defines the input for the causaloop_validate tool.
type ValidateInput struct {
	Model string `json:"model" jsonschema:"description=Causal-loop model description in YAML,required"`
}

// ValidateOutput defines the output for the causaloop_validate tool.
type ValidateOutput struct {
	Valid   bool   `json:"valid" jsonschema:"description=Whether the model builds into a valid graph"`
	Nodes   int    `json:"nodes" jsonschema:"description=Number of nodes in the graph"`
	Edges   int    `json:"edges" jsonschema:"description=Number of edges in the graph"`
	Error   string `json:"error,omitempty" jsonschema:"description=Validation failure when the model is invalid"`
	Message string `json:"message" jsonschema:"description=Human-readable result message"`
}

// LoopsInput defines the input for the causaloop_loops tool.
type LoopsInput struct {
	Model     string `json:"model" jsonschema:"description=Causal-loop model description in YAML,required"`
	MaxLength int    `json:"max_length,omitempty" jsonschema:"description=Maximum loop length in edges (default: unrestricted)"`
}

// LoopSummary is one discovered feedback loop.
type LoopSummary struct {
	ID             string   `json:"id"`
	Nodes          []string `json:"nodes"`
	Length         int      `json:"length"`
	Classification string   `json:"classification"`
	Trend          string   `json:"trend,omitempty"`
}

// LoopsOutput defines the output for the causaloop_loops tool.
type LoopsOutput struct {
	Loops     []LoopSummary `json:"loops" jsonschema:"description=Discovered feedback loops with classification"`
	Count     int           `json:"count" jsonschema:"description=Number of loops found"`
	Truncated bool          `json:"truncated" jsonschema:"description=Whether discovery hit the loop safety bound"`
	Message   string        `json:"message" jsonschema:"description=Human-readable result message"`
}

// SimulateInput defines the input for the causaloop_simulate tool.
type SimulateInput struct {
	Model   string `json:"model" jsonschema:"description=Causal-loop model description in YAML; may carry a run section with horizon and interventions,required"`
	Horizon int    `json:"horizon,omitempty" jsonschema:"description=Number of ticks to simulate (overrides the model file's run.horizon)"`
	Name    string `json:"name,omitempty" jsonschema:"description=Name to archive the run under (default: the model's name)"`
	Save    bool   `json:"save,omitempty" jsonschema:"description=Archive the run in the run store (default: false)"`
}

// SimulateOutput defines the output for the causaloop_simulate tool.
type SimulateOutput struct {
	RunID   string             `json:"run_id,omitempty" jsonschema:"description=Archived run id when save was requested"`
	Ticks   int                `json:"ticks" jsonschema:"description=Number of ticks simulated"`
	Verdict string             `json:"verdict" jsonschema:"description=Stability verdict: stable or unstable"`
	Final   map[string]float64 `json:"final" jsonschema:"description=Node values at the final tick"`
	Steady  map[string]float64 `json:"steady_state,omitempty" jsonschema:"description=Settled node values when the run is stable"`
	Loops   []LoopSummary      `json:"loops" jsonschema:"description=Feedback loops with their observed trend over the run"`
	Message string             `json:"message" jsonschema:"description=Human-readable result message"`
}

// RunsInput defines the input for the causaloop_runs tool.
type RunsInput struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of runs to return (default: all)"`
	Delete string `json:"delete,omitempty" jsonschema:"description=Id of an archived run to delete instead of listing"`
}

// RunSummary is one archived run.
type RunSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Horizon   int       `json:"horizon"`
	Verdict   string    `json:"verdict"`
	CreatedAt time.Time `json:"created_at"`
}

// RunsOutput defines the output for the causaloop_runs tool.
type RunsOutput struct {
	Runs    []RunSummary `json:"runs,omitempty" jsonschema:"description=Archived runs, newest first"`
	Count   int          `json:"count" jsonschema:"description=Number of runs returned"`
	Deleted string       `json:"deleted,omitempty" jsonschema:"description=Id of the deleted run"`
	Message string       `json:"message" jsonschema:"description=Human-readable result message"`
}
