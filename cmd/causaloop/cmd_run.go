package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/causaloop/causaloop/internal/analysis"
	"github.com/causaloop/causaloop/internal/config"
	"github.com/causaloop/causaloop/internal/engine"
	"github.com/causaloop/causaloop/internal/logging"
	"github.com/causaloop/causaloop/internal/loops"
	"github.com/causaloop/causaloop/internal/modelfile"
	"github.com/causaloop/causaloop/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <model.yaml>",
		Short: "Simulate a model and report stability and loop behavior",
		Long: `Simulate a model over its run horizon and report the results.

The model file's run section supplies the horizon, the intervention
schedule and optional stability parameters; --horizon overrides the
horizon. With --save the full value table is archived in the run store.

Examples:
  causaloop run model.yaml
  causaloop run model.yaml --horizon 100 --save
  causaloop run model.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			horizon, _ := cmd.Flags().GetInt("horizon")
			save, _ := cmd.Flags().GetBool("save")
			name, _ := cmd.Flags().GetString("name")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			f, err := modelfile.ParseFile(args[0])
			if err != nil {
				return err
			}
			g, err := f.Graph()
			if err != nil {
				return err
			}

			run := f.Run
			if run == nil {
				run = &modelfile.RunSpec{}
			}
			if horizon <= 0 {
				horizon = run.Horizon
			}
			if horizon <= 0 {
				return fmt.Errorf("horizon must be positive; set run.horizon in %s or pass --horizon", args[0])
			}

			sched, err := run.Schedule(g)
			if err != nil {
				return err
			}

			logger.Debug("starting run", "model", args[0], "horizon", horizon, "interventions", len(sched.Pending()))

			series, err := engine.Run(g, sched, horizon)
			if err != nil {
				return err
			}

			detected, err := loops.Detect(g, cfg.DetectorOptions())
			var limitErr *loops.CycleLimitError
			if err != nil && !errors.As(err, &limitErr) {
				return err
			}
			if detected.Truncated {
				logger.Warn("loop discovery truncated", "found", len(detected.Loops))
			}

			opts := run.AnalysisOptions()
			if opts.Epsilon == 0 && opts.Window == 0 {
				opts = cfg.AnalysisOptions()
			}
			report := analysis.Analyze(series, detected.Loops, opts)

			var runID string
			if save {
				runID, err = archiveRun(cmd.Context(), cfg, args[0], name, f, horizon, series, report)
				if err != nil {
					return err
				}
				logger.Info("run archived", "id", runID)
			}

			traceRun(cfg, runID, series)

			if jsonOut {
				return printRunJSON(runID, series, detected, report)
			}
			printRunText(runID, series, detected, report)
			return nil
		},
	}

	cmd.Flags().Int("horizon", 0, "Number of ticks to simulate (overrides the model's run.horizon)")
	cmd.Flags().Bool("save", false, "Archive the run in the run store")
	cmd.Flags().String("name", "", "Name to archive the run under (default: the model's name)")

	return cmd
}

func archiveRun(ctx context.Context, cfg *config.Config, path, name string, f *modelfile.File, horizon int, series *engine.Series, report *analysis.Report) (string, error) {
	storeDir, err := cfg.StoreDir()
	if err != nil {
		return "", err
	}
	runStore, err := store.Open(storeDir)
	if err != nil {
		return "", err
	}
	defer runStore.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = f.Name
	}

	rec := store.Run{
		ID:        store.NewRunID(),
		Name:      name,
		ModelHash: store.HashModel(data),
		Horizon:   horizon,
		Verdict:   string(report.Verdict),
		CreatedAt: time.Now().UTC(),
	}
	table := store.ValueTable{NodeIDs: series.NodeIDs, Values: series.Values}
	if err := runStore.SaveRun(ctx, rec, table); err != nil {
		return "", fmt.Errorf("archiving run: %w", err)
	}
	return rec.ID, nil
}

// traceRun writes the per-tick value table to the trace log when debug or
// trace logging is enabled.
func traceRun(cfg *config.Config, runID string, series *engine.Series) {
	storeDir, err := cfg.StoreDir()
	if err != nil {
		return
	}
	tl := logging.NewTraceLogger(storeDir, cfg.Logging.Level)
	defer tl.Close()

	for tick := 0; tick <= series.Ticks(); tick++ {
		values := make(map[string]float64, len(series.NodeIDs))
		for _, id := range series.NodeIDs {
			values[id] = series.Value(tick, id)
		}
		tl.Tick(runID, tick, values)
	}
}

func printRunJSON(runID string, series *engine.Series, detected loops.Result, report *analysis.Report) error {
	type loopOut struct {
		ID             string `json:"id"`
		Classification string `json:"classification"`
		Trend          string `json:"trend"`
	}
	loopsOut := make([]loopOut, len(report.Traces))
	for i, tr := range report.Traces {
		loopsOut[i] = loopOut{
			ID:             tr.Loop.ID(),
			Classification: string(tr.Loop.Classification),
			Trend:          string(tr.Trend),
		}
	}

	output := map[string]interface{}{
		"ticks":   series.Ticks(),
		"verdict": string(report.Verdict),
		"final":   series.Final(),
		"loops":   loopsOut,
		"values":  series.Values,
		"nodes":   series.NodeIDs,
	}
	if report.SteadyState != nil {
		output["steady_state"] = report.SteadyState
	}
	if runID != "" {
		output["run_id"] = runID
	}
	if detected.Truncated {
		output["loops_truncated"] = true
	}
	return json.NewEncoder(os.Stdout).Encode(output)
}

func printRunText(runID string, series *engine.Series, detected loops.Result, report *analysis.Report) {
	fmt.Printf("Simulated %d ticks.\n\n", series.Ticks())

	if len(report.Traces) > 0 {
		fmt.Println("Feedback loops:")
		for _, tr := range report.Traces {
			label := "R"
			if tr.Loop.Classification == loops.Balancing {
				label = "B"
			}
			fmt.Printf("  [%s] %s: %s\n", label, tr.Loop.ID(), tr.Trend)
		}
		fmt.Println()
	}

	fmt.Printf("Verdict: %s\n", report.Verdict)
	if report.SteadyState != nil {
		fmt.Println("Steady state:")
		for _, id := range series.NodeIDs {
			fmt.Printf("  %s = %.6g\n", id, report.SteadyState[id])
		}
	} else {
		fmt.Println("Final values:")
		final := series.Final()
		for _, id := range series.NodeIDs {
			fmt.Printf("  %s = %.6g\n", id, final[id])
		}
	}

	if runID != "" {
		fmt.Printf("\nArchived as %s\n", runID)
	}
}
