package match

// Scorer computes a 0-100 closeness between two normalized names. Token-set
// overlap carries more weight than character distance because retailer
// naming order differs systematically from source naming order.
type Scorer struct {
	// TokenWeight is the weight of the token-overlap component; the
	// edit-distance component gets the remainder. Default 0.6.
	TokenWeight float64
	// VintagePenalty is subtracted (flat, not multiplied) when both sides
	// have a known vintage and they differ. Default 15.
	VintagePenalty float64
}

// NewScorer returns a Scorer with the given weights; zero values fall back
// to the defaults.
func NewScorer(tokenWeight, vintagePenalty float64) Scorer {
	if tokenWeight <= 0 || tokenWeight > 1 {
		tokenWeight = 0.6
	}
	if vintagePenalty <= 0 {
		vintagePenalty = 15
	}
	return Scorer{TokenWeight: tokenWeight, VintagePenalty: vintagePenalty}
}

// Score combines token-set overlap and edit-distance ratio into a [0,100]
// similarity, with a flat penalty for mismatched known vintages. The token
// component is symmetric by construction and edit distance is naturally
// symmetric, so Score(a,b) == Score(b,a).
func (s Scorer) Score(query, candidate Normalized) float64 {
	token := jaccard(query.TokenSet(), candidate.TokenSet())
	edit := editRatio(query.Joined(), candidate.Joined())

	score := s.TokenWeight*token + (1-s.TokenWeight)*edit

	// Flat penalty keeps a strong name match with the wrong year in the
	// "partial" band instead of collapsing it to "different".
	if query.Vintage != 0 && candidate.Vintage != 0 && query.Vintage != candidate.Vintage {
		score -= s.VintagePenalty
	}

	return clamp(score, 0, 100)
}

// jaccard returns the token intersection-over-union scaled to [0,100].
// Two empty sets score 0: an empty name carries no matching evidence.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union) * 100
}

// editRatio returns a character-level similarity in [0,100] based on
// Levenshtein distance over the joined strings.
func editRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == "" || b == "" {
		return 0
	}
	dist := levenshtein(a, b)
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	return (1 - float64(dist)/float64(longest)) * 100
}

// levenshtein computes the edit distance between two strings using two
// rolling rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
