package model

import "time"

// MatchType classifies how closely a wine and a product agree.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchPartial   MatchType = "partial"
	MatchFuzzy     MatchType = "fuzzy"
	MatchDifferent MatchType = "different"
	MatchUncertain MatchType = "uncertain"
)

// ValidMatchType reports whether t is one of the five allowed values.
func ValidMatchType(t MatchType) bool {
	switch t {
	case MatchExact, MatchPartial, MatchFuzzy, MatchDifferent, MatchUncertain:
		return true
	}
	return false
}

// MatchMethod records which decision path produced a match.
type MatchMethod string

const (
	MethodAI       MatchMethod = "ai"
	MethodFallback MatchMethod = "fallback"
)

// MatchCandidate pairs one wine with one catalog product during ranking.
// Ephemeral, never persisted.
type MatchCandidate struct {
	Wine            VivinoWine
	Product         RetailerProduct
	SimilarityScore float64
}

// MatchDecision is the validated outcome of an adjudication, AI or fallback.
// A nil ProductNumber means no product was chosen.
type MatchDecision struct {
	ProductNumber string      `json:"chosen_product_number,omitempty"`
	Confidence    float64     `json:"confidence"`
	Type          MatchType   `json:"match_type"`
	Method        MatchMethod `json:"match_method"`
	Reasoning     string      `json:"reasoning,omitempty"`
}

// WineMatch is the persisted pairing of a Vivino wine with a retailer
// product. At most one row exists per (VivinoWineID, ProductNumber); reruns
// update the row in place and never touch Verified.
type WineMatch struct {
	VivinoWineID  string      `json:"vivino_wine_id"`
	ProductNumber string      `json:"retailer_product_id"`
	MatchScore    float64     `json:"match_score"`
	MatchType     MatchType   `json:"match_type"`
	MatchMethod   MatchMethod `json:"match_method"`
	AIReasoning   string      `json:"ai_reasoning,omitempty"`
	Verified      bool        `json:"verified"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
