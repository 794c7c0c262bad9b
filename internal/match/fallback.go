package match

import (
	"fmt"

	"github.com/tokyo3/bestwines/internal/model"
)

// Bands holds the score boundaries that map a similarity score to a match
// classification. All boundaries are inclusive lower bounds.
type Bands struct {
	Exact          float64
	Partial        float64
	Fuzzy          float64
	UncertainFloor float64
}

// DefaultBands returns the production score bands.
func DefaultBands() Bands {
	return Bands{Exact: 95, Partial: 80, Fuzzy: 60, UncertainFloor: 40}
}

// Classify maps a similarity score to a match type using the bands.
func (b Bands) Classify(score float64) model.MatchType {
	switch {
	case score >= b.Exact:
		return model.MatchExact
	case score >= b.Partial:
		return model.MatchPartial
	case score >= b.Fuzzy:
		return model.MatchFuzzy
	case score >= b.UncertainFloor:
		return model.MatchUncertain
	default:
		return model.MatchDifferent
	}
}

// FallbackDecision produces a pure rule-based decision from the top-ranked
// candidate. It always succeeds and is used whenever the AI path is
// unavailable, fails, or is not trusted.
func FallbackDecision(candidates []model.MatchCandidate, bands Bands) model.MatchDecision {
	if len(candidates) == 0 {
		return model.MatchDecision{
			Type:      model.MatchDifferent,
			Method:    model.MethodFallback,
			Reasoning: "no candidates to evaluate",
		}
	}

	top := candidates[0]
	matchType := bands.Classify(top.SimilarityScore)

	decision := model.MatchDecision{
		Confidence: top.SimilarityScore,
		Type:       matchType,
		Method:     model.MethodFallback,
		Reasoning: fmt.Sprintf("string similarity %.1f against %q classified as %s",
			top.SimilarityScore, top.Product.FullName(), matchType),
	}
	if matchType != model.MatchDifferent {
		decision.ProductNumber = top.Product.ProductNumber
	}
	return decision
}
