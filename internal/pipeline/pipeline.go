// Package pipeline composes the full toplist refresh: ingest wines from a
// source, match them against the retailer catalog, record the run, and
// notify.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/match"
	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/internal/store"
	"github.com/tokyo3/bestwines/pkg/telegram"
	"github.com/tokyo3/bestwines/pkg/vivino"
)

// Pipeline runs the scrape-match-notify flow for every toplist a source
// provides.
type Pipeline struct {
	store        store.Store
	source       vivino.Source
	orchestrator *match.Orchestrator
	notifier     *telegram.Notifier
}

// New creates a Pipeline. notifier may be nil.
func New(st store.Store, source vivino.Source, orch *match.Orchestrator, notifier *telegram.Notifier) *Pipeline {
	return &Pipeline{
		store:        st,
		source:       source,
		orchestrator: orch,
		notifier:     notifier,
	}
}

// Run refreshes every toplist from the source. Each toplist gets its own
// update-log entry; one failed toplist does not stop the others.
func (p *Pipeline) Run(ctx context.Context) ([]model.RunSummary, error) {
	toplists, err := p.source.Toplists(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load toplists")
	}
	if len(toplists) == 0 {
		return nil, eris.New("pipeline: source returned no toplists")
	}

	catalog, err := p.store.ListProducts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load catalog")
	}
	if len(catalog) == 0 {
		zap.L().Warn("product catalog is empty; run the sync command first")
	}

	var summaries []model.RunSummary
	for _, tl := range toplists {
		if ctx.Err() != nil {
			return summaries, eris.Wrap(ctx.Err(), "pipeline: interrupted")
		}
		summary := p.runToplist(ctx, tl, catalog)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (p *Pipeline) runToplist(ctx context.Context, tl vivino.Toplist, catalog []model.RetailerProduct) model.RunSummary {
	log := zap.L().With(zap.String("toplist", tl.Name), zap.String("toplist_id", tl.ID))
	log.Info("toplist refresh starting", zap.Int("wines", len(tl.Wines)))

	summary := model.RunSummary{
		ID:          uuid.New().String(),
		ToplistID:   tl.ID,
		ToplistName: tl.Name,
		WinesFound:  len(tl.Wines),
		StartedAt:   time.Now().UTC(),
	}

	wines, err := p.persistToplist(ctx, tl)
	if err != nil {
		return p.finish(ctx, summary, model.RunStats{}, err)
	}

	stats, err := p.orchestrator.Run(ctx, wines, catalog)
	summary.MatchesFound = stats.Matched()
	return p.finish(ctx, summary, stats, err)
}

// persistToplist stores the toplist and its wines and returns the wines as
// stored, with stable IDs.
func (p *Pipeline) persistToplist(ctx context.Context, tl vivino.Toplist) ([]model.VivinoWine, error) {
	wines := make([]model.VivinoWine, 0, len(tl.Wines))
	wineIDs := make([]string, 0, len(tl.Wines))

	for _, w := range tl.Wines {
		wine := model.VivinoWine{
			ID:                w.ID(),
			Name:              w.Name,
			Rating:            w.Rating,
			Vintage:           w.Vintage,
			Producer:          w.Producer,
			Region:            w.Region,
			Country:           w.Country,
			WineStyle:         w.WineStyle,
			AlcoholPercentage: w.AlcoholPercentage,
			GrapeVarieties:    w.GrapeVarieties,
			ImageURL:          w.ImageURL,
			SourceURL:         w.SourceURL,
		}
		if err := p.store.UpsertWine(ctx, wine); err != nil {
			return nil, eris.Wrapf(err, "pipeline: persist wine %q", wine.Name)
		}
		wines = append(wines, wine)
		wineIDs = append(wineIDs, wine.ID)
	}

	toplist := model.Toplist{
		ID:       tl.ID,
		Name:     tl.Name,
		URL:      tl.URL,
		Category: tl.Category,
		WineIDs:  wineIDs,
	}
	if err := p.store.UpsertToplist(ctx, toplist); err != nil {
		return nil, eris.Wrapf(err, "pipeline: persist toplist %q", tl.Name)
	}
	return wines, nil
}

// finish closes out one toplist run: status, update log, notification.
// Logging and notification failures are reported but never fail the run.
func (p *Pipeline) finish(ctx context.Context, summary model.RunSummary, stats model.RunStats, runErr error) model.RunSummary {
	summary.CompletedAt = time.Now().UTC()
	summary.Status = stats.Status()
	if runErr != nil {
		summary.ErrorMessage = runErr.Error()
		if stats.WinesProcessed == 0 {
			summary.Status = model.RunStatusFailed
		} else {
			summary.Status = model.RunStatusPartial
		}
	}

	if err := p.store.AppendUpdateLog(ctx, summary); err != nil {
		zap.L().Error("update log append failed", zap.Error(err))
	}

	if p.notifier != nil {
		var err error
		if summary.Status == model.RunStatusFailed {
			err = p.notifier.NotifyError(ctx, summary.ToplistName, summary.ErrorMessage)
		} else {
			err = p.notifier.NotifyRun(ctx, summary.ToplistName, summary.WinesFound, summary.MatchesFound, stats.Duration)
		}
		if err != nil {
			zap.L().Error("telegram notification failed", zap.Error(err))
		}
	}

	zap.L().Info("toplist refresh finished",
		zap.String("toplist", summary.ToplistName),
		zap.String("status", string(summary.Status)),
		zap.Int("wines", summary.WinesFound),
		zap.Int("matches", summary.MatchesFound),
	)
	return summary
}
