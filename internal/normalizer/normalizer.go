package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/rules"
	"feedback-insights-go/internal/types"
)

// maxThemeExamples caps how many example comments each theme keeps.
const maxThemeExamples = 3

// snippetLen truncates example/detail texts so the report stays compact.
const snippetLen = 120

// Normalizer converts either engine's output into the one canonical
// aggregate schema. Both analysis paths meet here, so NPS, churn and
// emotion summaries are computed exactly once, the same way, regardless of
// which engine produced the per-comment results.
type Normalizer struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Input is everything a pipeline run hands to aggregation. Results is
// aligned with Comments.
type Input struct {
	Comments   []types.Comment
	Results    []types.PerCommentResult
	Method     types.AnalysisMethod
	AICoverage float64
	RawTotal   int
	Duplicates int
}

// CanonicalSentiment maps engine-native sentiment vocabulary onto the
// canonical enum. Unknown values collapse to neutral.
func CanonicalSentiment(s string) types.Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "positivo", "positiva", "pos":
		return types.SentimentPositive
	case "negative", "negativo", "negativa", "neg":
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

// FromEngine converts the AI engine's raw shape into the canonical
// per-comment result, deriving the fields the gateway does not return:
// dominant emotion, intensity, churn and urgency. The same rule tables used
// by the fallback engine drive those derivations, so the two paths cannot
// diverge.
func (n *Normalizer) FromEngine(raw types.EngineResult, text string) types.PerCommentResult {
	sentiment := CanonicalSentiment(raw.Sentiment)
	confidence := clamp01(raw.Confidence)

	emotions := cleanTags(raw.Emotions)
	dominant := dominantEmotion(emotions, sentiment)
	intensity := round2(rules.EmotionBase(dominant) * confidence)

	lower := strings.ToLower(text)
	painPoints := cleanTags(raw.PainPoints)
	// Engine pain points plus anything the severity tables see in the text.
	churn := rules.ClassifyChurn(lower, painPoints)

	return types.PerCommentResult{
		Sentiment:        sentiment,
		Confidence:       round2(confidence),
		Themes:           cleanTags(raw.Themes),
		PainPoints:       painPoints,
		Emotions:         emotions,
		DominantEmotion:  dominant,
		EmotionIntensity: intensity,
		Churn:            churn,
		Urgency:          rules.DeriveUrgency(sentiment, churn.Level, intensity),
		Language:         strings.ToLower(strings.TrimSpace(raw.Language)),
		Translation:      strings.TrimSpace(raw.Translation),
	}
}

// Aggregate builds the full report from aligned comments and results.
// Returning an error here is a system fault: the orchestrator maps it to
// SystemError and aborts the run.
func (n *Normalizer) Aggregate(in Input) (*types.AggregateResult, error) {
	if len(in.Comments) == 0 {
		return nil, fmt.Errorf("nothing to aggregate")
	}
	if len(in.Comments) != len(in.Results) {
		return nil, fmt.Errorf("comments/results length mismatch: %d vs %d", len(in.Comments), len(in.Results))
	}

	total := len(in.Comments)
	agg := &types.AggregateResult{
		Total:          total,
		RawTotal:       in.RawTotal,
		Duplicates:     in.Duplicates,
		Comments:       make([]types.AnalyzedComment, 0, total),
		Themes:         map[string]types.ThemeSummary{},
		Emotions:       types.EmotionSummary{Distribution: map[string]int{}},
		ChurnRisk:      types.ChurnBlock{Details: []types.ChurnDetail{}},
		AnalysisMethod: in.Method,
		AICoverage:     in.AICoverage,
		AnalysisDate:   time.Now().UTC(),
		Oversight: types.OversightBlock{
			Metrics:     map[string]float64{},
			Issues:      []types.ValidationIssue{},
			Suggestions: []string{},
		},
	}

	intensitySum := 0.0
	for i, c := range in.Comments {
		r := in.Results[i]
		agg.Comments = append(agg.Comments, types.AnalyzedComment{Row: c.Row, Text: c.Text, Result: r})

		switch r.Sentiment {
		case types.SentimentPositive:
			agg.Sentiments.Positive++
		case types.SentimentNegative:
			agg.Sentiments.Negative++
		default:
			agg.Sentiments.Neutral++
		}

		// Theme examples show the Spanish translation for non-Spanish input.
		exampleText := c.Text
		if r.Translation != "" {
			exampleText = r.Translation
		}
		for _, theme := range r.Themes {
			summary := agg.Themes[theme]
			summary.Count++
			if len(summary.Examples) < maxThemeExamples {
				summary.Examples = append(summary.Examples, snippet(exampleText))
			}
			agg.Themes[theme] = summary
		}

		agg.Emotions.Distribution[r.DominantEmotion]++
		intensitySum += r.EmotionIntensity

		switch r.Churn.Level {
		case types.RiskHigh:
			agg.ChurnRisk.High++
		case types.RiskMedium:
			agg.ChurnRisk.Medium++
		default:
			agg.ChurnRisk.Low++
		}
		agg.ChurnRisk.Details = append(agg.ChurnRisk.Details, types.ChurnDetail{
			Row:     c.Row,
			Text:    snippet(c.Text),
			Level:   r.Churn.Level,
			Score:   r.Churn.Score,
			Factors: r.Churn.Factors,
		})
	}

	agg.SentimentPercentages = percentages(agg.Sentiments, total)
	agg.Emotions.AverageIntensity = round2(intensitySum / float64(total))
	agg.NPS = n.computeNPS(in.Comments, in.Results)
	return agg, nil
}

// computeNPS prefers real survey scores; without them it derives a
// synthetic 0-10 score per comment from sentiment and emotion intensity and
// applies the same promoter/passive/detractor bucketing.
func (n *Normalizer) computeNPS(comments []types.Comment, results []types.PerCommentResult) types.NPSBlock {
	var scores []int
	fromSurvey := false
	for _, c := range comments {
		if c.NPSScore != nil {
			scores = append(scores, *c.NPSScore)
		}
	}
	if len(scores) > 0 {
		fromSurvey = true
	} else {
		for _, r := range results {
			scores = append(scores, n.syntheticScore(r))
		}
	}

	block := types.NPSBlock{FromSurvey: fromSurvey}
	for _, s := range scores {
		switch {
		case s >= 9:
			block.Promoters++
		case s >= 7:
			block.Passives++
		default:
			block.Detractors++
		}
	}
	if respondents := len(scores); respondents > 0 {
		block.Score = round1(float64(block.Promoters-block.Detractors) / float64(respondents) * 100)
	}
	return block
}

func (n *Normalizer) syntheticScore(r types.PerCommentResult) int {
	s := n.cfg.Synthetic
	switch r.Sentiment {
	case types.SentimentPositive:
		score := s.PositiveBase + int(math.Round(s.PositiveBoost*r.EmotionIntensity))
		if score > 10 {
			score = 10
		}
		return score
	case types.SentimentNegative:
		score := s.NegativeBase - int(math.Round(s.NegativePenalty*r.EmotionIntensity))
		if score < 0 {
			score = 0
		}
		return score
	default:
		return s.NeutralScore
	}
}

// percentages rounds each share to one decimal, then pushes the rounding
// residue into the largest bucket so the three always sum to 100.0.
func percentages(counts types.SentimentCounts, total int) types.SentimentPercentages {
	p := types.SentimentPercentages{
		Positive: round1(float64(counts.Positive) / float64(total) * 100),
		Neutral:  round1(float64(counts.Neutral) / float64(total) * 100),
		Negative: round1(float64(counts.Negative) / float64(total) * 100),
	}
	residue := round1(100 - p.Positive - p.Neutral - p.Negative)
	if residue == 0 {
		return p
	}
	switch {
	case counts.Positive >= counts.Neutral && counts.Positive >= counts.Negative:
		p.Positive = round1(p.Positive + residue)
	case counts.Negative >= counts.Neutral:
		p.Negative = round1(p.Negative + residue)
	default:
		p.Neutral = round1(p.Neutral + residue)
	}
	return p
}

// dominantEmotion picks the matched emotion with the highest base
// intensity, falling back to a sentiment-derived default.
func dominantEmotion(emotions []string, sentiment types.Sentiment) string {
	dominant := ""
	best := -1.0
	for _, e := range emotions {
		if base := rules.EmotionBase(e); base > best {
			best = base
			dominant = e
		}
	}
	if dominant != "" {
		return dominant
	}
	switch sentiment {
	case types.SentimentPositive:
		return "satisfaccion"
	case types.SentimentNegative:
		return "frustracion"
	default:
		return "neutral"
	}
}

func cleanTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func snippet(text string) string {
	if len(text) <= snippetLen {
		return text
	}
	cut := text[:snippetLen]
	// don't split a multi-byte rune
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}

func clamp01(f float64) float64 {
	return math.Min(math.Max(f, 0), 1)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
