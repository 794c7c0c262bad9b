package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tokyo3/bestwines/internal/config"
	"github.com/tokyo3/bestwines/internal/model"
)

// Store defines the persistence interface shared by the matching pipeline,
// the site generator, and the query API.
type Store interface {
	// Wines
	UpsertWine(ctx context.Context, wine model.VivinoWine) error
	GetWine(ctx context.Context, wineID string) (*model.VivinoWine, error)
	ListWinesByToplist(ctx context.Context, toplistID string) ([]model.VivinoWine, error)

	// Toplists
	UpsertToplist(ctx context.Context, toplist model.Toplist) error
	GetToplist(ctx context.Context, toplistID string) (*model.Toplist, error)
	ListToplists(ctx context.Context) ([]model.Toplist, error)

	// Retailer catalog
	ReplaceCatalog(ctx context.Context, products []model.RetailerProduct) (int, error)
	ListProducts(ctx context.Context) ([]model.RetailerProduct, error)
	GetProduct(ctx context.Context, productNumber string) (*model.RetailerProduct, error)

	// Matches. UpsertMatch keeps at most one row per wine; on rerun it
	// replaces the decision fields but never Verified or CreatedAt.
	UpsertMatch(ctx context.Context, m model.WineMatch) error
	GetMatch(ctx context.Context, wineID string) (*model.WineMatch, error)
	ListMatchesByToplist(ctx context.Context, toplistID string) ([]model.WineMatch, error)
	SetVerified(ctx context.Context, wineID string, verified bool) error

	// Update log
	AppendUpdateLog(ctx context.Context, summary model.RunSummary) error
	ListUpdateLog(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store from configuration. GetWine, GetToplist, GetProduct
// and GetMatch return (nil, nil) when the record does not exist, on every
// backend.
func New(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "json":
		return NewJSON(filepath.Join(cfg.DataDir, "bestwines.json"))
	case "sqlite":
		return NewSQLite(filepath.Join(cfg.DataDir, "bestwines.db"))
	case "postgres":
		return NewPostgres(context.Background(), cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
