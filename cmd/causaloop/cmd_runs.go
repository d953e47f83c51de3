package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/causaloop/causaloop/internal/config"
	"github.com/causaloop/causaloop/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived simulation runs",
		Long: `List archived simulation runs, newest first.

Examples:
  causaloop runs
  causaloop runs --delete 7b0c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			deleteID, _ := cmd.Flags().GetString("delete")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			storeDir, err := cfg.StoreDir()
			if err != nil {
				return err
			}
			runStore, err := store.Open(storeDir)
			if err != nil {
				return err
			}
			defer runStore.Close()

			ctx := cmd.Context()

			if deleteID != "" {
				if err := runStore.DeleteRun(ctx, deleteID); err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(os.Stdout).Encode(map[string]string{"deleted": deleteID})
				}
				fmt.Printf("Deleted run %s\n", deleteID)
				return nil
			}

			runs, err := runStore.ListRuns(ctx)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Println("No archived runs.")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %-20s  horizon=%-4d  %-8s  %s\n",
					r.ID, r.Name, r.Horizon, r.Verdict, r.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().String("delete", "", "Delete the archived run with this id")

	return cmd
}
