package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/match"
	"github.com/tokyo3/bestwines/internal/pipeline"
	"github.com/tokyo3/bestwines/internal/store"
	"github.com/tokyo3/bestwines/pkg/aiclient"
	"github.com/tokyo3/bestwines/pkg/systembolaget"
	"github.com/tokyo3/bestwines/pkg/telegram"
	"github.com/tokyo3/bestwines/pkg/vivino"
)

// env bundles the wired components a command needs. Callers should defer
// env.Close().
type env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Catalog  systembolaget.Client
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Error("store close failed", zap.Error(err))
	}
}

// initStore opens and migrates the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv wires the store, clients, matching engine, and pipeline.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	scorer := match.NewScorer(cfg.Match.TokenWeight, cfg.Match.VintagePenalty)
	ranker := match.NewRanker(scorer, cfg.Match.TopCandidates, cfg.Match.PrefilterByWine)
	bands := match.Bands{
		Exact:          cfg.Match.ExactBand,
		Partial:        cfg.Match.PartialBand,
		Fuzzy:          cfg.Match.FuzzyBand,
		UncertainFloor: cfg.Match.UncertainFloor,
	}

	adjudicator := initAdjudicator()
	orch := match.NewOrchestrator(st, ranker, adjudicator, bands, cfg.Match.Threshold, cfg.Match.Workers)

	notifier := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.SiteURL)
	if !notifier.Enabled() {
		zap.L().Debug("telegram not configured, notifications disabled")
	}

	catalogClient := systembolaget.NewClient(cfg.Systembolaget.SubscriptionKey,
		systembolaget.WithBaseURL(cfg.Systembolaget.BaseURL),
		systembolaget.WithRateLimit(cfg.Systembolaget.RatePerSec),
		systembolaget.WithPageSize(cfg.Systembolaget.PageSize),
	)

	return &env{
		Store:    st,
		Pipeline: pipeline.New(st, initSource(), orch, notifier),
		Catalog:  catalogClient,
	}, nil
}

// initAdjudicator builds the AI adjudicator from configured backends.
// Without an Anthropic key the AI path is disabled and matching runs on
// fallback rules alone.
func initAdjudicator() *match.Adjudicator {
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("anthropic key not set, AI adjudication disabled")
		return nil
	}

	var anthropicOpts []aiclient.AnthropicOption
	if cfg.Anthropic.MaxTokens > 0 {
		anthropicOpts = append(anthropicOpts, aiclient.WithAnthropicMaxTokens(cfg.Anthropic.MaxTokens))
	}
	primary := aiclient.NewAnthropic(cfg.Anthropic.Key, cfg.Anthropic.Model, anthropicOpts...)

	var secondary aiclient.Backend
	if cfg.OpenAI.Key != "" {
		secondary = aiclient.NewOpenAICompat(cfg.OpenAI.Key,
			aiclient.WithOpenAIBaseURL(cfg.OpenAI.BaseURL),
			aiclient.WithOpenAIModel(cfg.OpenAI.Model),
		)
	}

	return match.NewAdjudicator(primary, secondary, cfg.Match.AITimeout())
}

// initSource picks the toplist source: page scraping when URLs are given on
// the command line, otherwise the seed file.
func initSource() vivino.Source {
	if len(scrapeURLs) > 0 {
		return vivino.NewScraper(scrapeURLs, vivino.WithScrapeRate(cfg.Vivino.RatePerSec))
	}
	return vivino.NewFileSource(cfg.Vivino.ToplistsFile)
}
