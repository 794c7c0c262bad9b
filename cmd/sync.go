package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/pkg/systembolaget"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local Systembolaget wine catalog",
	Long:  "Pages through the Systembolaget wine category and replaces the locally stored catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Systembolaget.SubscriptionKey == "" {
			return eris.New("systembolaget subscription key not configured")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		products, err := e.Catalog.FetchWineCatalog(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch catalog")
		}

		n, err := e.Store.ReplaceCatalog(ctx, toModelProducts(products))
		if err != nil {
			return eris.Wrap(err, "store catalog")
		}

		zap.L().Info("catalog synced", zap.Int("products", n))
		return nil
	},
}

// toModelProducts converts API products to the stored representation.
// Discontinued products are dropped here so the matcher never sees them.
func toModelProducts(products []systembolaget.Product) []model.RetailerProduct {
	out := make([]model.RetailerProduct, 0, len(products))
	for _, p := range products {
		if p.IsDiscontinued {
			continue
		}
		out = append(out, model.RetailerProduct{
			ProductNumber:     p.ProductNumber,
			NameBold:          p.ProductNameBold,
			NameThin:          p.ProductNameThin,
			Price:             p.Price,
			VolumeML:          int(p.Volume),
			CategoryL1:        p.CategoryLevel1,
			CategoryL2:        p.CategoryLevel2,
			Country:           p.Country,
			AlcoholPercentage: p.AlcoholPercentage,
			Producer:          p.ProducerName,
			Year:              p.Vintage,
		})
	}
	return out
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
