package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/model"
)

var scrapeURLs []string

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Refresh toplists and match wines against the catalog",
	Long: "Loads toplists from the seed file (or scrapes the given URLs), matches every wine " +
		"against the local Systembolaget catalog, and records the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		summaries, err := e.Pipeline.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "matching run")
		}

		failed := 0
		for _, s := range summaries {
			if s.Status == model.RunStatusFailed {
				failed++
			}
		}
		zap.L().Info("all toplists processed",
			zap.Int("toplists", len(summaries)),
			zap.Int("failed", failed),
		)
		if failed == len(summaries) && failed > 0 {
			return eris.New("every toplist failed")
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().StringSliceVar(&scrapeURLs, "url", nil, "toplist page URL to scrape (repeatable; default: seed file)")
	rootCmd.AddCommand(matchCmd)
}
