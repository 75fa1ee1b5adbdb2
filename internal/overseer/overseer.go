package overseer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/rules"
	"feedback-insights-go/internal/types"
)

// spotCheckSample caps how many comments the plausibility check inspects.
const spotCheckSample = 10

// Confidence weights: fraction of checks passed, completeness/depth of the
// report, and the optional LLM second opinion. When the second opinion is
// unavailable the remaining weights are renormalized.
const (
	weightChecks       = 0.5
	weightCompleteness = 0.3
	weightOpinion      = 0.2
)

// SecondOpinion is the optional lightweight LLM review. Implementations are
// best-effort: an error just means the opinion is skipped.
type SecondOpinion interface {
	Review(ctx context.Context, res *types.AggregateResult) (score float64, issues []string, err error)
}

// Overseer inspects a normalized aggregate for internal consistency and
// plausibility and attaches the oversight block. Findings are data, not
// control flow: the run always completes.
type Overseer struct {
	cfg      *config.Config
	log      *logger.Logger
	reviewer SecondOpinion // nil disables the secondary opinion
}

func New(cfg *config.Config, log *logger.Logger, reviewer SecondOpinion) *Overseer {
	return &Overseer{cfg: cfg, log: log, reviewer: reviewer}
}

// Review runs all checks, derives the confidence score and amends the
// result in place. The same object is returned for chaining.
func (o *Overseer) Review(ctx context.Context, res *types.AggregateResult) *types.AggregateResult {
	log := o.log.WithComponent("overseer")

	issues := []types.ValidationIssue{}
	suggestions := []string{}
	passed, totalChecks := 0, 0

	run := func(check func(*types.AggregateResult) []types.ValidationIssue) {
		totalChecks++
		found := check(res)
		if len(found) == 0 {
			passed++
		}
		issues = append(issues, found...)
	}

	run(checkCounts)
	run(checkPercentages)
	run(checkRequiredFields)
	run(checkNPSArithmetic)
	totalChecks++
	spotIssues, spotSuggestions := spotCheckSentiment(res)
	if len(spotIssues) == 0 {
		passed++
	}
	issues = append(issues, spotIssues...)
	suggestions = append(suggestions, spotSuggestions...)

	checksScore := float64(passed) / float64(totalChecks)
	completeness := completenessScore(res)

	metrics := map[string]float64{
		"checks_passed": round2(checksScore),
		"completeness":  round2(completeness),
	}

	confidence := 0.0
	opinionUsed := false
	if o.reviewer != nil {
		opCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Short)
		score, opinionIssues, err := o.reviewer.Review(opCtx, res)
		cancel()
		if err != nil {
			log.WithError(err).Warn("secondary review unavailable, confidence is rule-derived only")
		} else {
			opinionUsed = true
			metrics["llm_opinion"] = round2(score)
			for _, msg := range opinionIssues {
				issues = append(issues, types.ValidationIssue{Kind: types.IssueImplausible, Message: msg})
			}
			confidence = weightChecks*checksScore + weightCompleteness*completeness + weightOpinion*score
		}
	}
	if !opinionUsed {
		confidence = (weightChecks*checksScore + weightCompleteness*completeness) / (weightChecks + weightCompleteness)
	}
	confidence = round2(confidence)

	suggestions = append(suggestions, batchSuggestions(res)...)

	valid := true
	if o.cfg.StrictMode && confidence < o.cfg.MinConfidence {
		valid = false
		issues = append(issues, types.ValidationIssue{
			Kind:    types.IssueLowConfidence,
			Message: fmt.Sprintf("confidence %.2f below strict-mode floor %.2f", confidence, o.cfg.MinConfidence),
		})
	}

	res.Oversight = types.OversightBlock{
		Confidence:  confidence,
		Valid:       valid,
		Metrics:     metrics,
		Issues:      issues,
		Suggestions: suggestions,
	}
	log.WithField("confidence", confidence).
		WithField("issues", len(issues)).
		WithField("valid", valid).
		Info("oversight complete")
	return res
}

func checkCounts(res *types.AggregateResult) []types.ValidationIssue {
	sum := res.Sentiments.Positive + res.Sentiments.Neutral + res.Sentiments.Negative
	if sum == res.Total {
		return nil
	}
	return []types.ValidationIssue{{
		Kind:    types.IssueCountMismatch,
		Message: fmt.Sprintf("sentiment counts sum to %d, total is %d", sum, res.Total),
		Field:   "sentiments",
	}}
}

func checkPercentages(res *types.AggregateResult) []types.ValidationIssue {
	if res.Total == 0 {
		return nil
	}
	var issues []types.ValidationIssue
	check := func(name string, reported float64, count int) {
		expected := float64(count) / float64(res.Total) * 100
		if math.Abs(reported-expected) > 1.0 {
			issues = append(issues, types.ValidationIssue{
				Kind:    types.IssuePercentageMismatch,
				Message: fmt.Sprintf("%s percentage %.1f deviates from recomputed %.1f", name, reported, expected),
				Field:   "sentiment_percentages",
			})
		}
	}
	check("positive", res.SentimentPercentages.Positive, res.Sentiments.Positive)
	check("neutral", res.SentimentPercentages.Neutral, res.Sentiments.Neutral)
	check("negative", res.SentimentPercentages.Negative, res.Sentiments.Negative)
	return issues
}

func checkRequiredFields(res *types.AggregateResult) []types.ValidationIssue {
	var issues []types.ValidationIssue
	if res.Total <= 0 {
		issues = append(issues, types.ValidationIssue{Kind: types.IssueMissingField, Message: "total is zero", Field: "total"})
	}
	if len(res.Comments) == 0 {
		issues = append(issues, types.ValidationIssue{Kind: types.IssueMissingField, Message: "no analyzed comments", Field: "comments"})
	}
	if res.AnalysisDate.IsZero() {
		issues = append(issues, types.ValidationIssue{Kind: types.IssueMissingField, Message: "analysis date not set", Field: "analysis_date"})
	}
	return issues
}

func checkNPSArithmetic(res *types.AggregateResult) []types.ValidationIssue {
	respondents := res.NPS.Promoters + res.NPS.Passives + res.NPS.Detractors
	if respondents == 0 {
		return []types.ValidationIssue{{
			Kind:    types.IssueNPSMismatch,
			Message: "nps block has no respondents",
			Field:   "nps",
		}}
	}
	expected := float64(res.NPS.Promoters-res.NPS.Detractors) / float64(respondents) * 100
	if math.Abs(res.NPS.Score-expected) > 0.5 {
		return []types.ValidationIssue{{
			Kind:    types.IssueNPSMismatch,
			Message: fmt.Sprintf("nps score %.1f does not match promoter/detractor counts (expected %.1f)", res.NPS.Score, expected),
			Field:   "nps",
		}}
	}
	return nil
}

// spotCheckSentiment samples comments and flags classifications that
// contradict strong lexical cues. Findings are suggestions for review, not
// hard failures.
func spotCheckSentiment(res *types.AggregateResult) ([]types.ValidationIssue, []string) {
	var issues []types.ValidationIssue
	var suggestions []string
	limit := len(res.Comments)
	if limit > spotCheckSample {
		limit = spotCheckSample
	}
	for _, ac := range res.Comments[:limit] {
		switch {
		case ac.Result.Sentiment == types.SentimentNegative && rules.HasStrongPositiveCue(ac.Text):
			issues = append(issues, types.ValidationIssue{
				Kind:    types.IssueImplausible,
				Message: fmt.Sprintf("row %d marked negative despite strong positive cue", ac.Row),
				Field:   "comments",
			})
			suggestions = append(suggestions, fmt.Sprintf("revisar clasificación de la fila %d", ac.Row))
		case ac.Result.Sentiment == types.SentimentPositive && rules.HasStrongNegativeCue(ac.Text):
			issues = append(issues, types.ValidationIssue{
				Kind:    types.IssueImplausible,
				Message: fmt.Sprintf("row %d marked positive despite strong negative cue", ac.Row),
				Field:   "comments",
			})
			suggestions = append(suggestions, fmt.Sprintf("revisar clasificación de la fila %d", ac.Row))
		}
	}
	return issues, suggestions
}

// completenessScore measures report depth: themes, NPS and emotion data
// each contribute a third.
func completenessScore(res *types.AggregateResult) float64 {
	score := 0.0
	if len(res.Themes) > 0 {
		score += 1.0 / 3
	}
	if res.NPS.Promoters+res.NPS.Passives+res.NPS.Detractors > 0 {
		score += 1.0 / 3
	}
	if len(res.Emotions.Distribution) > 0 {
		score += 1.0 / 3
	}
	return score
}

// batchSuggestions derives actionable hints from batch-level patterns.
func batchSuggestions(res *types.AggregateResult) []string {
	var out []string
	if res.Total == 0 {
		return out
	}
	if highRate := float64(res.ChurnRisk.High) / float64(res.Total); highRate >= 0.35 {
		out = append(out, fmt.Sprintf("Alto riesgo de baja en %.0f%% de los comentarios; priorizar retención", highRate*100))
	}
	themes := make([]string, 0, len(res.Themes))
	for theme := range res.Themes {
		themes = append(themes, theme)
	}
	sort.Strings(themes)
	for _, theme := range themes {
		if float64(res.Themes[theme].Count)/float64(res.Total) >= 0.5 {
			out = append(out, fmt.Sprintf("El tema %q aparece en más de la mitad de los comentarios", theme))
			break
		}
	}
	if res.NPS.Score < 0 {
		out = append(out, "NPS negativo: más detractores que promotores en este lote")
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
