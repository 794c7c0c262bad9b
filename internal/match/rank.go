package match

import (
	"sort"

	"github.com/tokyo3/bestwines/internal/model"
)

// Ranker scores one wine against a product catalog and returns the top-K
// candidates in a deterministic order.
type Ranker struct {
	Scorer    Scorer
	TopK      int
	Prefilter bool
}

// NewRanker returns a Ranker; topK values below 1 fall back to 8.
func NewRanker(scorer Scorer, topK int, prefilter bool) Ranker {
	if topK < 1 {
		topK = 8
	}
	return Ranker{Scorer: scorer, TopK: topK, Prefilter: prefilter}
}

// Rank scores the wine against every catalog product and returns the top-K
// candidates descending by similarity, ties broken by ascending product
// number so repeated runs produce identical shortlists. An empty catalog
// yields an empty slice.
//
// With Prefilter set, only wine-category products are scored. The filter is
// a performance shortcut: when it empties the set the full catalog is
// scored instead, so it can only shrink the work, never hide the winner.
func (r Ranker) Rank(wine model.VivinoWine, catalog []model.RetailerProduct) []model.MatchCandidate {
	if len(catalog) == 0 {
		return nil
	}

	scored := catalog
	if r.Prefilter {
		wines := make([]model.RetailerProduct, 0, len(catalog))
		for _, p := range catalog {
			if p.IsWine() {
				wines = append(wines, p)
			}
		}
		if len(wines) > 0 {
			scored = wines
		}
	}

	queries := wineQueries(wine)

	candidates := make([]model.MatchCandidate, 0, len(scored))
	for _, p := range scored {
		cand := Normalize(p.FullName(), p.Year)
		best := 0.0
		for _, q := range queries {
			if s := r.Scorer.Score(q, cand); s > best {
				best = s
			}
		}
		candidates = append(candidates, model.MatchCandidate{
			Wine:            wine,
			Product:         p,
			SimilarityScore: best,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SimilarityScore != candidates[j].SimilarityScore {
			return candidates[i].SimilarityScore > candidates[j].SimilarityScore
		}
		return candidates[i].Product.ProductNumber < candidates[j].Product.ProductNumber
	})

	if len(candidates) > r.TopK {
		candidates = candidates[:r.TopK]
	}
	return candidates
}

// wineQueries builds the normalized query variants for a wine: the bare
// name, and the producer-prefixed name when a producer is known. Retailer
// names sometimes lead with the producer and sometimes omit it, so scoring
// takes the best of both.
func wineQueries(wine model.VivinoWine) []Normalized {
	queries := []Normalized{Normalize(wine.Name, wine.Vintage)}
	if wine.Producer != "" {
		queries = append(queries, Normalize(wine.Producer+" "+wine.Name, wine.Vintage))
	}
	return queries
}
