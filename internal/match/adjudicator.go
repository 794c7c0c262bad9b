package match

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/pkg/aiclient"
)

const adjudicatorSystemPrompt = `You are an expert wine sommelier and data analyst. ` +
	`You decide whether a wine from a rating site is the same product as one of ` +
	`the candidates from a Swedish retailer catalog. The retailer may use Swedish ` +
	`translations, shortened producer names, or different vintages. Respond only ` +
	`with the requested JSON object.`

// Adjudicator asks an AI backend to pick the matching product among ranked
// candidates. A secondary backend, when configured, is tried once after the
// primary fails.
type Adjudicator struct {
	primary   aiclient.Backend
	secondary aiclient.Backend
	timeout   time.Duration
}

// NewAdjudicator creates an Adjudicator. secondary may be nil. A timeout of
// zero disables the per-call deadline.
func NewAdjudicator(primary, secondary aiclient.Backend, timeout time.Duration) *Adjudicator {
	return &Adjudicator{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
	}
}

// aiVerdict is the JSON object the model is asked to produce.
type aiVerdict struct {
	ChosenProductNumber string  `json:"chosen_product_number"`
	Confidence          float64 `json:"confidence"`
	MatchType           string  `json:"match_type"`
	Reasoning           string  `json:"reasoning"`
}

// Adjudicate asks the AI which candidate, if any, is the same wine. The
// returned decision is validated against the candidate list; an error means
// no usable verdict was obtained and the caller should fall back.
func (a *Adjudicator) Adjudicate(ctx context.Context, wine model.VivinoWine, candidates []model.MatchCandidate) (model.MatchDecision, error) {
	if a.primary == nil {
		return model.MatchDecision{}, eris.New("adjudicate: no AI backend configured")
	}
	if len(candidates) == 0 {
		return model.MatchDecision{}, eris.New("adjudicate: no candidates to evaluate")
	}

	prompt := buildPrompt(wine, candidates)

	raw, err := a.complete(ctx, prompt)
	if err != nil {
		return model.MatchDecision{}, err
	}

	decision, err := parseVerdict(raw, candidates)
	if err != nil {
		return model.MatchDecision{}, eris.Wrap(err, "adjudicate: parse verdict")
	}
	return decision, nil
}

func (a *Adjudicator) complete(ctx context.Context, prompt string) (string, error) {
	raw, primaryErr := a.callBackend(ctx, a.primary, prompt)
	if primaryErr == nil {
		return raw, nil
	}
	if a.secondary == nil {
		return "", eris.Wrap(primaryErr, "adjudicate: primary backend")
	}

	zap.L().Warn("primary AI backend failed, retrying with secondary",
		zap.String("primary", a.primary.Name()),
		zap.String("secondary", a.secondary.Name()),
		zap.Error(primaryErr),
	)

	raw, secondaryErr := a.callBackend(ctx, a.secondary, prompt)
	if secondaryErr != nil {
		return "", eris.Wrapf(secondaryErr, "adjudicate: both backends failed (primary: %v)", primaryErr)
	}
	return raw, nil
}

func (a *Adjudicator) callBackend(ctx context.Context, b aiclient.Backend, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return b.Complete(ctx, adjudicatorSystemPrompt, prompt)
}

func buildPrompt(wine model.VivinoWine, candidates []model.MatchCandidate) string {
	var sb strings.Builder

	sb.WriteString("WINE TO MATCH:\n")
	fmt.Fprintf(&sb, "  Name: %q\n", wine.Name)
	if wine.Producer != "" {
		fmt.Fprintf(&sb, "  Producer: %s\n", wine.Producer)
	}
	if wine.Vintage > 0 {
		fmt.Fprintf(&sb, "  Vintage: %d\n", wine.Vintage)
	}
	if wine.Country != "" {
		fmt.Fprintf(&sb, "  Country: %s\n", wine.Country)
	}
	if wine.WineStyle != "" {
		fmt.Fprintf(&sb, "  Style: %s\n", wine.WineStyle)
	}
	if wine.Rating > 0 {
		fmt.Fprintf(&sb, "  Rating: %.1f/5\n", wine.Rating)
	}

	sb.WriteString("\nCATALOG CANDIDATES:\n")
	for i, c := range candidates {
		p := c.Product
		fmt.Fprintf(&sb, "%d. product_number=%s name=%q", i+1, p.ProductNumber, p.FullName())
		if p.Producer != "" {
			fmt.Fprintf(&sb, " producer=%q", p.Producer)
		}
		if p.Year > 0 {
			fmt.Fprintf(&sb, " year=%d", p.Year)
		}
		if p.Country != "" {
			fmt.Fprintf(&sb, " country=%s", p.Country)
		}
		if p.Price > 0 {
			fmt.Fprintf(&sb, " price=%.0f SEK", p.Price)
		}
		fmt.Fprintf(&sb, " string_similarity=%.1f\n", c.SimilarityScore)
	}

	sb.WriteString(`
Decide which candidate, if any, is the same wine. Consider producer names
(possibly abbreviated or translated), appellations, vintage years, grape
varieties, and Swedish naming conventions. A different vintage of the same
wine counts as a partial match.

Respond with a JSON object in this exact format:
{
    "chosen_product_number": "<product_number of the best candidate, or empty string if none match>",
    "confidence": <0-100>,
    "match_type": "exact|partial|fuzzy|different|uncertain",
    "reasoning": "<short explanation>"
}

Match types:
- "exact": same wine and vintage, high confidence (90-100)
- "partial": same wine, differing vintage or minor naming differences (60-89)
- "fuzzy": probably the same wine but notable differences (40-59)
- "uncertain": cannot determine (40-59)
- "different": clearly no candidate matches (0-39)

Be conservative but thorough.`)

	return sb.String()
}

// parseVerdict validates the raw AI response. The chosen product must be one
// of the offered candidates; an AI answer is never allowed to invent one.
func parseVerdict(raw string, candidates []model.MatchCandidate) (model.MatchDecision, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var v aiVerdict
	if err := json.Unmarshal([]byte(clean), &v); err != nil {
		return model.MatchDecision{}, eris.Wrapf(err, "response was not valid JSON: %.200s", raw)
	}

	if v.Confidence < 0 || v.Confidence > 100 {
		return model.MatchDecision{}, eris.Errorf("confidence %.1f outside [0,100]", v.Confidence)
	}

	matchType := model.MatchType(v.MatchType)
	if !model.ValidMatchType(matchType) {
		matchType = model.MatchUncertain
	}

	decision := model.MatchDecision{
		Confidence: v.Confidence,
		Type:       matchType,
		Method:     model.MethodAI,
		Reasoning:  v.Reasoning,
	}

	chosen := strings.TrimSpace(v.ChosenProductNumber)
	if chosen == "" {
		return decision, nil
	}

	for _, c := range candidates {
		if c.Product.ProductNumber == chosen {
			decision.ProductNumber = chosen
			return decision, nil
		}
	}
	return model.MatchDecision{}, eris.Errorf("chosen product %q is not among the offered candidates", chosen)
}
