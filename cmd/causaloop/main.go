package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "causaloop",
		Short: "Causaloop - causal-loop diagram simulation",
		Long: `causaloop builds signed, delayed causal graphs from declarative model
files, discovers and classifies their feedback loops, and simulates them
tick by tick under scheduled interventions.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newLoopsCmd(),
		newRunCmd(),
		newRunsCmd(),
		newMCPServerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("causaloop version %s\n", version)
			}
		},
	}
}
