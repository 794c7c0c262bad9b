package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var updatesLimit int

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Show recent matching runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		updates, err := st.ListUpdateLog(ctx, updatesLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(updates)
	},
}

func init() {
	updatesCmd.Flags().IntVar(&updatesLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(updatesCmd)
}
