package match

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// noiseWords lists generic wine terms that add no matching signal. They are
// dropped during normalization so "Appassimento Red Wine" and "Appassimento"
// compare as the same name.
var noiseWords = map[string]struct{}{
	"wine": {}, "wines": {}, "vin": {}, "vins": {}, "vino": {}, "vinos": {},
	"red": {}, "rouge": {}, "white": {}, "blanc": {},
	"rose": {}, "rosado": {},
	"dry": {}, "sweet": {}, "blend": {},
	"reserve": {}, "reserva": {}, "gran": {},
}

var (
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	nonVintageRe = regexp.MustCompile(`\b[NUAO]\.?V\.?\b`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// stripDiacritics converts accented characters to their base form
// ("Château" → "Chateau", "Más" → "Mas").
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalized is the comparable form of a wine or product name. Tokens are
// lower-cased, accent-free, noise-filtered words in original order; Vintage
// is 0 when unknown.
type Normalized struct {
	Tokens  []string
	Vintage int
}

// Joined returns the tokens as a single space-separated string.
func (n Normalized) Joined() string {
	return strings.Join(n.Tokens, " ")
}

// TokenSet returns the tokens as a set for overlap computation.
func (n Normalized) TokenSet() map[string]struct{} {
	set := make(map[string]struct{}, len(n.Tokens))
	for _, t := range n.Tokens {
		set[t] = struct{}{}
	}
	return set
}

// Normalize canonicalizes a raw name and vintage into comparable form:
// lower-case, diacritics stripped, punctuation removed (internal hyphens
// kept), non-vintage markers dropped, whitespace collapsed. A 4-digit year
// between 1900 and next year embedded in the name is extracted as the
// vintage when one is not supplied. Pure and deterministic; malformed input
// degrades to fewer tokens, never an error.
func Normalize(rawName string, vintage int) Normalized {
	name := strings.TrimSpace(rawName)

	name = nonVintageRe.ReplaceAllString(name, " ")

	// Extract an embedded vintage year before stripping digits-adjacent
	// punctuation. The supplied vintage always wins.
	maxYear := time.Now().Year() + 1
	name = yearRe.ReplaceAllStringFunc(name, func(m string) string {
		y, err := strconv.Atoi(m)
		if err != nil || y < 1900 || y > maxYear {
			return m
		}
		if vintage == 0 {
			vintage = y
		}
		return " "
	})

	if folded, _, err := transform.String(stripDiacritics, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)

	// Drop punctuation, keeping hyphens so compound names like
	// "saint-esprit" survive as one token.
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	name = multiSpaceRe.ReplaceAllString(b.String(), " ")

	var tokens []string
	for _, tok := range strings.Fields(name) {
		tok = strings.Trim(tok, "-")
		if tok == "" {
			continue
		}
		if _, noise := noiseWords[tok]; noise {
			continue
		}
		tokens = append(tokens, tok)
	}

	return Normalized{Tokens: tokens, Vintage: vintage}
}
