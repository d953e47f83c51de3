package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/causaloop/causaloop/internal/config"
	"github.com/causaloop/causaloop/internal/loops"
	"github.com/causaloop/causaloop/internal/modelfile"
)

func newLoopsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loops <model.yaml>",
		Short: "Enumerate and classify the feedback loops of a model",
		Long: `Enumerate and classify the feedback loops of a model.

Every elementary cycle is reported once, in canonical form, together with
its classification: reinforcing (even number of negative edges) or
balancing (odd number).

Examples:
  causaloop loops model.yaml
  causaloop loops model.yaml --max-length 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			maxLength, _ := cmd.Flags().GetInt("max-length")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			f, err := modelfile.ParseFile(args[0])
			if err != nil {
				return err
			}
			g, err := f.Graph()
			if err != nil {
				return err
			}

			opts := cfg.DetectorOptions()
			if maxLength > 0 {
				opts.MaxLength = maxLength
			}
			result, err := loops.Detect(g, opts)
			var limitErr *loops.CycleLimitError
			if err != nil && !errors.As(err, &limitErr) {
				return err
			}

			if jsonOut {
				type loopOut struct {
					ID             string   `json:"id"`
					Nodes          []string `json:"nodes"`
					Length         int      `json:"length"`
					Classification string   `json:"classification"`
				}
				out := make([]loopOut, len(result.Loops))
				for i, lp := range result.Loops {
					out[i] = loopOut{
						ID:             lp.ID(),
						Nodes:          lp.Nodes(),
						Length:         lp.Len(),
						Classification: string(lp.Classification),
					}
				}
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"loops":     out,
					"count":     len(out),
					"truncated": result.Truncated,
				})
			}

			if len(result.Loops) == 0 {
				fmt.Println("No feedback loops found.")
				return nil
			}
			for i, lp := range result.Loops {
				label := "R"
				if lp.Classification == loops.Balancing {
					label = "B"
				}
				fmt.Printf("%d. [%s] %s (%d edges)\n", i+1, label, lp.ID(), lp.Len())
			}
			if result.Truncated {
				fmt.Printf("\nWarning: discovery hit the safety bound of %d loops; result is partial.\n", opts.MaxLoops)
			}
			return nil
		},
	}

	cmd.Flags().Int("max-length", 0, "Maximum loop length in edges (0 = unrestricted)")

	return cmd
}
