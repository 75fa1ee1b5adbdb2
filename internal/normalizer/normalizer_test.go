package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/types"
)

func intPtr(v int) *int { return &v }

func simpleResult(s types.Sentiment, intensity float64) types.PerCommentResult {
	return types.PerCommentResult{
		Sentiment:        s,
		Confidence:       0.8,
		Themes:           []string{},
		PainPoints:       []string{},
		Emotions:         []string{},
		DominantEmotion:  "neutral",
		EmotionIntensity: intensity,
		Churn:            types.ChurnAssessment{Level: types.RiskLow, Factors: []string{}},
		Urgency:          types.UrgencyP3,
	}
}

func TestCanonicalSentiment(t *testing.T) {
	tests := []struct {
		in   string
		want types.Sentiment
	}{
		{"positive", types.SentimentPositive},
		{"POSITIVO", types.SentimentPositive},
		{" Negativo ", types.SentimentNegative},
		{"neg", types.SentimentNegative},
		{"neutral", types.SentimentNeutral},
		{"garbage", types.SentimentNeutral},
		{"", types.SentimentNeutral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalSentiment(tt.in), "input %q", tt.in)
	}
}

func TestFromEngineInvariants(t *testing.T) {
	n := New(config.Default())
	raw := types.EngineResult{
		Sentiment:  "Positivo",
		Confidence: 1.4, // out of range, must be clamped
		Themes:     []string{" Precio ", "precio", ""},
		PainPoints: nil,
		Emotions:   []string{"alegria"},
	}
	res := n.FromEngine(raw, "Excelente precio del plan")

	assert.Equal(t, types.SentimentPositive, res.Sentiment)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, []string{"precio"}, res.Themes, "tags deduped and normalized")
	assert.NotNil(t, res.PainPoints)
	assert.Equal(t, "alegria", res.DominantEmotion)
	assert.Greater(t, res.EmotionIntensity, 0.0)
	assert.NotEmpty(t, res.Urgency)
}

func TestFromEngineDominantEmotionFallback(t *testing.T) {
	n := New(config.Default())
	res := n.FromEngine(types.EngineResult{
		Sentiment:  "negative",
		Confidence: 0.9,
		Themes:     []string{},
		Emotions:   []string{},
	}, "sin emociones explícitas")
	assert.Equal(t, "frustracion", res.DominantEmotion)
	assert.Greater(t, res.EmotionIntensity, 0.0)
}

func TestAggregateCountsAndPercentages(t *testing.T) {
	n := New(config.Default())
	comments := []types.Comment{
		{Row: 1, Text: "a"}, {Row: 2, Text: "b"}, {Row: 3, Text: "c"},
	}
	results := []types.PerCommentResult{
		simpleResult(types.SentimentPositive, 0.5),
		simpleResult(types.SentimentNegative, 0.5),
		simpleResult(types.SentimentNeutral, 0.5),
	}

	agg, err := n.Aggregate(Input{
		Comments: comments, Results: results,
		Method: types.MethodRuleFallback, RawTotal: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, agg.Total, agg.Sentiments.Positive+agg.Sentiments.Neutral+agg.Sentiments.Negative)
	sum := agg.SentimentPercentages.Positive + agg.SentimentPercentages.Neutral + agg.SentimentPercentages.Negative
	assert.InDelta(t, 100.0, sum, 0.5)
	assert.False(t, agg.AnalysisDate.IsZero())
	assert.Equal(t, types.MethodRuleFallback, agg.AnalysisMethod)
}

func TestAggregatePercentagesAlwaysCloseTo100(t *testing.T) {
	n := New(config.Default())
	// 7 comments split 3/2/2 produces repeating decimals.
	var comments []types.Comment
	var results []types.PerCommentResult
	for i := 0; i < 7; i++ {
		comments = append(comments, types.Comment{Row: i + 1, Text: "texto"})
		switch {
		case i < 3:
			results = append(results, simpleResult(types.SentimentPositive, 0.4))
		case i < 5:
			results = append(results, simpleResult(types.SentimentNeutral, 0.4))
		default:
			results = append(results, simpleResult(types.SentimentNegative, 0.4))
		}
	}
	agg, err := n.Aggregate(Input{Comments: comments, Results: results, Method: types.MethodAIPowered, AICoverage: 100, RawTotal: 7})
	require.NoError(t, err)
	sum := agg.SentimentPercentages.Positive + agg.SentimentPercentages.Neutral + agg.SentimentPercentages.Negative
	assert.InDelta(t, 100.0, sum, 0.5)
}

func TestAggregateIdempotent(t *testing.T) {
	n := New(config.Default())
	comments := []types.Comment{
		{Row: 1, Text: "Excelente atención"},
		{Row: 2, Text: "Muy caro el plan"},
	}
	results := []types.PerCommentResult{
		simpleResult(types.SentimentPositive, 0.6),
		simpleResult(types.SentimentNegative, 0.7),
	}
	in := Input{Comments: comments, Results: results, Method: types.MethodHybrid, AICoverage: 50, RawTotal: 2}

	first, err := n.Aggregate(in)
	require.NoError(t, err)
	second, err := n.Aggregate(in)
	require.NoError(t, err)

	first.AnalysisDate = time.Time{}
	second.AnalysisDate = time.Time{}
	assert.Equal(t, first, second)
}

func TestNPSFromRealScores(t *testing.T) {
	n := New(config.Default())
	scores := []int{9, 9, 3, 7}
	var comments []types.Comment
	var results []types.PerCommentResult
	for i, s := range scores {
		comments = append(comments, types.Comment{Row: i + 1, Text: "x", NPSScore: intPtr(s)})
		results = append(results, simpleResult(types.SentimentNeutral, 0.3))
	}

	agg, err := n.Aggregate(Input{Comments: comments, Results: results, Method: types.MethodRuleFallback, RawTotal: 4})
	require.NoError(t, err)

	assert.True(t, agg.NPS.FromSurvey)
	assert.Equal(t, 2, agg.NPS.Promoters)
	assert.Equal(t, 1, agg.NPS.Passives)
	assert.Equal(t, 1, agg.NPS.Detractors)
	assert.InDelta(t, 25.0, agg.NPS.Score, 0.001)
}

func TestNPSSyntheticWhenNoScores(t *testing.T) {
	n := New(config.Default())
	comments := []types.Comment{
		{Row: 1, Text: "a"}, {Row: 2, Text: "b"}, {Row: 3, Text: "c"},
	}
	results := []types.PerCommentResult{
		simpleResult(types.SentimentPositive, 0.9), // 8 + round(2*0.9) = 10 -> promoter
		simpleResult(types.SentimentNeutral, 0.2),  // 7 -> passive
		simpleResult(types.SentimentNegative, 0.8), // 4 - round(3*0.8) = 2 -> detractor
	}

	agg, err := n.Aggregate(Input{Comments: comments, Results: results, Method: types.MethodRuleFallback, RawTotal: 3})
	require.NoError(t, err)

	assert.False(t, agg.NPS.FromSurvey)
	assert.Equal(t, 1, agg.NPS.Promoters)
	assert.Equal(t, 1, agg.NPS.Passives)
	assert.Equal(t, 1, agg.NPS.Detractors)
	assert.InDelta(t, 0.0, agg.NPS.Score, 0.001)
}

func TestFromEngineCarriesLanguageAndTranslation(t *testing.T) {
	n := New(config.Default())
	res := n.FromEngine(types.EngineResult{
		Sentiment:   "positive",
		Confidence:  0.9,
		Themes:      []string{"atencion_cliente"},
		Emotions:    []string{},
		Language:    " EN ",
		Translation: " Excelente atención del equipo de soporte ",
	}, "Excellent support from the team")

	assert.Equal(t, "en", res.Language)
	assert.Equal(t, "Excelente atención del equipo de soporte", res.Translation)
}

func TestAggregatePrefersTranslationForThemeExamples(t *testing.T) {
	n := New(config.Default())
	comments := []types.Comment{
		{Row: 1, Text: "The connection drops every single night"},
		{Row: 2, Text: "Se corta la conexión todas las noches"},
	}
	translated := simpleResult(types.SentimentNegative, 0.6)
	translated.Themes = []string{"conectividad"}
	translated.Language = "en"
	translated.Translation = "La conexión se cae todas las noches"
	native := simpleResult(types.SentimentNegative, 0.6)
	native.Themes = []string{"conectividad"}

	agg, err := n.Aggregate(Input{
		Comments: comments,
		Results:  []types.PerCommentResult{translated, native},
		Method:   types.MethodAIPowered, AICoverage: 100, RawTotal: 2,
	})
	require.NoError(t, err)

	require.Contains(t, agg.Themes, "conectividad")
	examples := agg.Themes["conectividad"].Examples
	require.Len(t, examples, 2)
	assert.Equal(t, "La conexión se cae todas las noches", examples[0])
	assert.Equal(t, "Se corta la conexión todas las noches", examples[1])
}

func TestAggregateThemesAndChurn(t *testing.T) {
	n := New(config.Default())
	var comments []types.Comment
	var results []types.PerCommentResult
	for i := 0; i < 5; i++ {
		comments = append(comments, types.Comment{Row: i + 1, Text: "comentario sobre el precio"})
		r := simpleResult(types.SentimentNegative, 0.5)
		r.Themes = []string{"precio"}
		if i == 0 {
			r.Churn = types.ChurnAssessment{Level: types.RiskHigh, Score: 0.9, Factors: []string{"cancelar"}}
		}
		results = append(results, r)
	}

	agg, err := n.Aggregate(Input{Comments: comments, Results: results, Method: types.MethodRuleFallback, RawTotal: 5})
	require.NoError(t, err)

	require.Contains(t, agg.Themes, "precio")
	assert.Equal(t, 5, agg.Themes["precio"].Count)
	assert.Len(t, agg.Themes["precio"].Examples, 3, "at most three examples per theme")

	assert.Equal(t, 1, agg.ChurnRisk.High)
	assert.Equal(t, 4, agg.ChurnRisk.Low)
	assert.Len(t, agg.ChurnRisk.Details, 5)
}

func TestAggregateErrors(t *testing.T) {
	n := New(config.Default())
	_, err := n.Aggregate(Input{})
	assert.Error(t, err)

	_, err = n.Aggregate(Input{
		Comments: []types.Comment{{Row: 1, Text: "a"}},
		Results:  nil,
	})
	assert.Error(t, err)
}
