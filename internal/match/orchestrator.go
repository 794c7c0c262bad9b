package match

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/internal/store"
)

// Orchestrator drives the per-wine matching flow: rank candidates, let the
// AI adjudicate, fall back to the rule-based decision when the AI path
// fails or is not trusted, then persist anything above the acceptance
// threshold.
type Orchestrator struct {
	ranker      Ranker
	adjudicator *Adjudicator // nil disables the AI path entirely
	bands       Bands
	threshold   float64
	workers     int
	store       store.Store
}

// NewOrchestrator wires the matching engine. adjudicator may be nil, in
// which case every wine is decided by the fallback rules.
func NewOrchestrator(st store.Store, ranker Ranker, adjudicator *Adjudicator, bands Bands, threshold float64, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		ranker:      ranker,
		adjudicator: adjudicator,
		bands:       bands,
		threshold:   threshold,
		workers:     workers,
		store:       st,
	}
}

// Run matches every wine against the catalog with a bounded worker pool and
// returns aggregate stats. Cancelling ctx stops dispatching new wines;
// in-flight AI calls run to completion under their own timeout. A non-nil
// error means the run was cut short, with stats covering the wines that did
// complete.
func (o *Orchestrator) Run(ctx context.Context, wines []model.VivinoWine, catalog []model.RetailerProduct) (model.RunStats, error) {
	start := time.Now()

	var (
		mu         sync.Mutex
		stats      model.RunStats
		scoreTotal float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, wine := range wines {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			match, err := o.matchWine(gctx, wine, catalog)

			mu.Lock()
			defer mu.Unlock()
			stats.WinesProcessed++
			switch {
			case err != nil:
				stats.Errors++
				zap.L().Error("wine match failed",
					zap.String("wine_id", wine.ID),
					zap.String("wine", wine.Name),
					zap.Error(err),
				)
			case match == nil:
				stats.Unmatched++
			case match.MatchMethod == model.MethodAI:
				stats.MatchedByAI++
				scoreTotal += match.MatchScore
			default:
				stats.MatchedFallback++
				scoreTotal += match.MatchScore
			}
			return nil
		})
	}

	err := g.Wait()

	if n := stats.Matched(); n > 0 {
		stats.AverageScore = scoreTotal / float64(n)
	}
	stats.Duration = time.Since(start)

	zap.L().Info("matching run finished",
		zap.Int("wines", stats.WinesProcessed),
		zap.Int("matched_ai", stats.MatchedByAI),
		zap.Int("matched_fallback", stats.MatchedFallback),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", stats.Duration),
	)

	if err != nil {
		return stats, eris.Wrap(err, "match run interrupted")
	}
	return stats, nil
}

// matchWine decides one wine. A nil match with nil error means the wine
// stays unmatched.
func (o *Orchestrator) matchWine(ctx context.Context, wine model.VivinoWine, catalog []model.RetailerProduct) (*model.WineMatch, error) {
	log := zap.L().With(zap.String("wine_id", wine.ID), zap.String("wine", wine.Name))

	candidates := o.ranker.Rank(wine, catalog)
	if len(candidates) == 0 {
		log.Debug("no candidates ranked")
		return nil, nil
	}
	log.Debug("candidates ranked",
		zap.Int("count", len(candidates)),
		zap.Float64("top_score", candidates[0].SimilarityScore),
	)

	decision := o.decide(ctx, wine, candidates, log)

	if decision.ProductNumber == "" || decision.Type == model.MatchDifferent || decision.Confidence < o.threshold {
		log.Debug("below acceptance threshold",
			zap.Float64("confidence", decision.Confidence),
			zap.String("match_type", string(decision.Type)),
		)
		return nil, nil
	}

	match := model.WineMatch{
		VivinoWineID:  wine.ID,
		ProductNumber: decision.ProductNumber,
		MatchScore:    decision.Confidence,
		MatchType:     decision.Type,
		MatchMethod:   decision.Method,
		AIReasoning:   decision.Reasoning,
	}
	if err := o.store.UpsertMatch(ctx, match); err != nil {
		return nil, eris.Wrapf(err, "persist match for wine %s", wine.ID)
	}

	log.Info("wine matched",
		zap.String("product_number", match.ProductNumber),
		zap.Float64("score", match.MatchScore),
		zap.String("method", string(match.MatchMethod)),
	)
	return &match, nil
}

// decide runs the AI path and falls back to the rule-based classification
// when the AI is unavailable, errors out, picks nothing, or comes back
// below the acceptance threshold. The fallback always produces a decision.
func (o *Orchestrator) decide(ctx context.Context, wine model.VivinoWine, candidates []model.MatchCandidate, log *zap.Logger) model.MatchDecision {
	if o.adjudicator == nil {
		return FallbackDecision(candidates, o.bands)
	}

	// Detached from run cancellation so an in-flight call finishes; the
	// adjudicator applies its own per-call timeout.
	decision, err := o.adjudicator.Adjudicate(context.WithoutCancel(ctx), wine, candidates)
	if err != nil {
		log.Warn("AI adjudication failed, using fallback", zap.Error(err))
		return FallbackDecision(candidates, o.bands)
	}

	// A confident AI verdict stands, including a confident "no match". Only
	// an unsure one is reconsidered against the rule-based classification.
	if decision.Confidence < o.threshold {
		fallback := FallbackDecision(candidates, o.bands)
		if fallback.ProductNumber != "" && fallback.Confidence >= o.threshold {
			log.Debug("AI unsure, fallback accepted",
				zap.Float64("ai_confidence", decision.Confidence),
				zap.Float64("fallback_confidence", fallback.Confidence),
			)
			return fallback
		}
	}
	return decision
}
