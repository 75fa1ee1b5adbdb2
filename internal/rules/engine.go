package rules

import (
	"math"
	"sort"
	"strings"

	"feedback-insights-go/internal/types"
)

// Engine is the deterministic analyzer: a pure function of its keyword
// tables. It cannot fail and does no I/O, which makes it the guaranteed
// fallback when the AI engine is unavailable.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Analyze classifies one comment. A supplied numeric rating of <=3 or >=8
// overrides the lexical decision: an explicit score is a stronger signal
// than keywords.
func (e *Engine) Analyze(text string, rating *float64) types.PerCommentResult {
	lower := strings.ToLower(text)

	pos := countHits(lower, positiveKeywords)
	neg := countHits(lower, negativeKeywords)

	sentiment := types.SentimentNeutral
	switch {
	case pos > neg:
		sentiment = types.SentimentPositive
	case neg > pos:
		sentiment = types.SentimentNegative
	}

	confidence := 0.5
	if pos+neg > 0 {
		diff := pos - neg
		if diff < 0 {
			diff = -diff
		}
		confidence = math.Min(0.55+0.1*float64(diff), 0.95)
	}

	themes := DetectThemes(lower)
	painPoints := DetectPainPoints(lower)
	emotions, dominant := DetectEmotions(lower, sentiment)
	intensity := round2(EmotionBase(dominant) * confidence)

	if rating != nil {
		switch {
		case *rating <= 3:
			sentiment = types.SentimentNegative
			confidence = math.Max(confidence, 0.85)
			intensity = math.Max(intensity, 0.7)
			if dominant == "neutral" || dominant == "satisfaccion" {
				dominant = "frustracion"
			}
		case *rating >= 8:
			sentiment = types.SentimentPositive
			confidence = math.Max(confidence, 0.85)
			intensity = math.Max(intensity, 0.7)
			if dominant == "neutral" || dominant == "frustracion" {
				dominant = "satisfaccion"
			}
		}
	}

	churn := ClassifyChurn(lower, painPoints)
	return types.PerCommentResult{
		Sentiment:        sentiment,
		Confidence:       round2(confidence),
		Themes:           themes,
		PainPoints:       painPoints,
		Emotions:         emotions,
		DominantEmotion:  dominant,
		EmotionIntensity: round2(intensity),
		Churn:            churn,
		Urgency:          DeriveUrgency(sentiment, churn.Level, intensity),
	}
}

// DetectThemes returns every theme whose keywords appear in the text. A
// comment may carry several themes.
func DetectThemes(lower string) []string {
	return matchTables(lower, themeKeywords)
}

// DetectPainPoints returns every pain-point category found in the text.
func DetectPainPoints(lower string) []string {
	return matchTables(lower, painPointKeywords)
}

// DetectEmotions scans the emotion lexicon and picks the dominant emotion as
// the matched entry with the highest base intensity. When nothing matches,
// the dominant emotion falls back to a sentiment-derived default and the
// emotion list stays empty.
func DetectEmotions(lower string, sentiment types.Sentiment) ([]string, string) {
	names := make([]string, 0, len(emotionLexicon))
	for name := range emotionLexicon {
		names = append(names, name)
	}
	sort.Strings(names)

	matched := []string{}
	dominant := ""
	best := 0.0
	for _, name := range names {
		entry := emotionLexicon[name]
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, name)
				if entry.base > best {
					best = entry.base
					dominant = name
				}
				break
			}
		}
	}
	if dominant == "" {
		switch sentiment {
		case types.SentimentPositive:
			dominant = "satisfaccion"
		case types.SentimentNegative:
			dominant = "frustracion"
		default:
			dominant = "neutral"
		}
	}
	return matched, dominant
}

// EmotionBase returns the base intensity for an emotion name.
func EmotionBase(name string) float64 {
	if entry, ok := emotionLexicon[name]; ok {
		return entry.base
	}
	if base, ok := defaultEmotionBase[name]; ok {
		return base
	}
	return 0.3
}

// ClassifyChurn scores churn risk from severity keywords and detected pain
// points. Critical keywords outweigh medium ones.
func ClassifyChurn(lower string, painPoints []string) types.ChurnAssessment {
	score := 0.0
	factors := []string{}
	for _, kw := range churnCriticalKeywords {
		if strings.Contains(lower, kw) {
			score += 0.45
			factors = append(factors, kw)
		}
	}
	for _, kw := range churnMediumKeywords {
		if strings.Contains(lower, kw) {
			score += 0.2
			factors = append(factors, kw)
		}
	}
	score += 0.1 * float64(len(painPoints))
	factors = append(factors, painPoints...)
	score = math.Min(score, 1.0)

	level := types.RiskLow
	switch {
	case score >= 0.7:
		level = types.RiskHigh
	case score >= 0.35:
		level = types.RiskMedium
	}
	return types.ChurnAssessment{Level: level, Score: round2(score), Factors: factors}
}

// DeriveUrgency assigns an ordinal priority from sentiment, churn and
// intensity. P0 is reserved for negative comments with high churn risk.
func DeriveUrgency(sentiment types.Sentiment, churn types.RiskLevel, intensity float64) types.Urgency {
	if sentiment == types.SentimentNegative && churn == types.RiskHigh {
		return types.UrgencyP0
	}
	if sentiment == types.SentimentNegative && (intensity >= 0.6 || churn == types.RiskMedium) {
		return types.UrgencyP1
	}
	if sentiment == types.SentimentNegative {
		return types.UrgencyP2
	}
	return types.UrgencyP3
}

// HasStrongPositiveCue reports whether the text carries an unambiguous
// positive marker. Used by the oversight plausibility check.
func HasStrongPositiveCue(text string) bool {
	return anyContains(strings.ToLower(text), strongPositiveCues)
}

// HasStrongNegativeCue reports whether the text carries an unambiguous
// negative marker.
func HasStrongNegativeCue(text string) bool {
	return anyContains(strings.ToLower(text), strongNegativeCues)
}

func matchTables(lower string, tables map[string][]string) []string {
	out := []string{}
	for name, keywords := range tables {
		if anyContains(lower, keywords) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func anyContains(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
