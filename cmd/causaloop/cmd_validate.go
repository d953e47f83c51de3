package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/causaloop/causaloop/internal/graph"
	"github.com/causaloop/causaloop/internal/modelfile"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model.yaml>",
		Short: "Validate a model file",
		Long: `Validate a model file.

This command checks that:
  - Every node has a valid kind (stock or auxiliary) and a unique id
  - Every edge references declared nodes and no ordered pair repeats
  - Polarities are +1 or -1, gains and delays are non-negative

Examples:
  causaloop validate model.yaml
  causaloop validate model.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			var g *graph.Graph
			f, err := modelfile.ParseFile(args[0])
			if err == nil {
				g, err = f.Graph()
			}

			if jsonOut {
				output := map[string]interface{}{"valid": err == nil}
				if err != nil {
					output["error"] = err.Error()
				} else {
					output["nodes"] = g.NodeCount()
					output["edges"] = g.EdgeCount()
				}
				return json.NewEncoder(os.Stdout).Encode(output)
			}

			if err != nil {
				fmt.Printf("✗ %s is invalid: %v\n", args[0], err)
				os.Exit(1)
			}
			fmt.Printf("✓ %s is valid: %d nodes, %d edges\n", args[0], g.NodeCount(), g.EdgeCount())
			return nil
		},
	}
}
