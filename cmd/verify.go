package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verifyUnset bool

var verifyCmd = &cobra.Command{
	Use:   "verify <wine-id>",
	Short: "Mark a wine's match as manually verified",
	Long: "Flags a persisted match as reviewed by a human. Verified matches keep their flag " +
		"across matching reruns.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wineID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		m, err := st.GetMatch(ctx, wineID)
		if err != nil {
			return err
		}
		if m == nil {
			return eris.Errorf("no match recorded for wine %s", wineID)
		}

		verified := !verifyUnset
		if err := st.SetVerified(ctx, wineID, verified); err != nil {
			return err
		}

		zap.L().Info("match verification updated",
			zap.String("wine_id", wineID),
			zap.String("product_number", m.ProductNumber),
			zap.Bool("verified", verified),
		)
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyUnset, "unset", false, "clear the verified flag instead of setting it")
	rootCmd.AddCommand(verifyCmd)
}
