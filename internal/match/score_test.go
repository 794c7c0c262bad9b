package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_IdenticalNames(t *testing.T) {
	s := NewScorer(0, 0)
	a := Normalize("Barolo Cannubi", 2019)
	assert.InDelta(t, 100, s.Score(a, a), 0.001)
}

func TestScore_Symmetric(t *testing.T) {
	s := NewScorer(0, 0)
	pairs := [][2]string{
		{"Barolo Cannubi", "Cannubi Barolo Riserva"},
		{"Château Margaux", "Margaux du Château"},
		{"Penfolds Bin 28", "Torres Sangre de Toro"},
	}
	for _, p := range pairs {
		a := Normalize(p[0], 0)
		b := Normalize(p[1], 0)
		assert.Equal(t, s.Score(a, b), s.Score(b, a), "%q vs %q", p[0], p[1])
	}
}

func TestScore_Bounds(t *testing.T) {
	s := NewScorer(0, 0)
	inputs := []string{"", "Barolo", "Barolo Cannubi Riserva 2019", "x", "completely different name"}
	for _, qa := range inputs {
		for _, qb := range inputs {
			score := s.Score(Normalize(qa, 0), Normalize(qb, 0))
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		}
	}
}

func TestScore_EmptyNameScoresZeroTokens(t *testing.T) {
	s := NewScorer(0, 0)
	assert.Equal(t, 0.0, s.Score(Normalize("", 0), Normalize("Barolo", 0)))
}

func TestScore_VintagePenalty(t *testing.T) {
	s := NewScorer(0.6, 15)

	same := s.Score(Normalize("Barolo Cannubi", 2019), Normalize("Barolo Cannubi", 2019))
	differ := s.Score(Normalize("Barolo Cannubi", 2019), Normalize("Barolo Cannubi", 2018))
	unknown := s.Score(Normalize("Barolo Cannubi", 2019), Normalize("Barolo Cannubi", 0))

	assert.InDelta(t, 15, same-differ, 0.001, "penalty must be the flat configured amount")
	assert.Equal(t, same, unknown, "unknown vintage takes no penalty")
}

func TestScore_PenaltyNeverBelowZero(t *testing.T) {
	s := NewScorer(0.6, 100)
	score := s.Score(Normalize("abc", 2019), Normalize("xyz", 2018))
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestScore_TokenOverlapDominates(t *testing.T) {
	s := NewScorer(0.6, 15)
	query := Normalize("Sangre de Toro", 0)
	reordered := Normalize("Toro de Sangre", 0)
	unrelated := Normalize("Cloudy Bay Sauvignon", 0)

	assert.Greater(t, s.Score(query, reordered), s.Score(query, unrelated))
}

func TestNewScorer_Defaults(t *testing.T) {
	s := NewScorer(0, 0)
	assert.Equal(t, 0.6, s.TokenWeight)
	assert.Equal(t, 15.0, s.VintagePenalty)

	s = NewScorer(1.5, -3)
	assert.Equal(t, 0.6, s.TokenWeight)
	assert.Equal(t, 15.0, s.VintagePenalty)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("barolo", "barolo"))
	assert.Equal(t, 1, levenshtein("barolo", "baroli"))
	assert.Equal(t, 6, levenshtein("barolo", ""))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
