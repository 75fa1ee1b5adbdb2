package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/dataset"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/normalizer"
	"feedback-insights-go/internal/overseer"
	"feedback-insights-go/internal/rules"
	"feedback-insights-go/internal/types"
)

// fakeAI scripts the AI engine and records the size of every submitted
// batch, which is how the tier retry behavior is observed.
type fakeAI struct {
	sizes []int
	fn    func(texts []string) ([]*types.EngineResult, bool)
}

func (f *fakeAI) Analyze(ctx context.Context, comments []string) ([]*types.EngineResult, bool) {
	f.sizes = append(f.sizes, len(comments))
	return f.fn(comments)
}

func engineResult(sentiment string) *types.EngineResult {
	return &types.EngineResult{
		Sentiment:  sentiment,
		Confidence: 0.9,
		Themes:     []string{},
		PainPoints: []string{},
		Emotions:   []string{},
	}
}

func allSucceed(texts []string) ([]*types.EngineResult, bool) {
	out := make([]*types.EngineResult, len(texts))
	for i := range out {
		out[i] = engineResult("positive")
	}
	return out, true
}

func allFail(texts []string) ([]*types.EngineResult, bool) {
	return nil, false
}

func newOrchestrator(cfg *config.Config, ai AIClient) *Orchestrator {
	log := logger.New()
	return New(cfg, log, ai, rules.NewEngine(), normalizer.New(cfg), overseer.New(cfg, log, nil))
}

func commentDataset(texts ...string) *dataset.Dataset {
	rows := make([][]string, len(texts))
	for i, t := range texts {
		rows[i] = []string{t}
	}
	return &dataset.Dataset{Columns: []string{"Comentario"}, Rows: rows}
}

func TestRunFullAISuccess(t *testing.T) {
	cfg := config.Default()
	ai := &fakeAI{fn: allSucceed}
	orch := newOrchestrator(cfg, ai)

	res, runErr := orch.Run(context.Background(), commentDataset(
		"Excelente atención en la sucursal",
		"El técnico resolvió todo rápido",
		"Muy conforme con el nuevo plan",
	))
	require.Nil(t, runErr)

	assert.Equal(t, types.MethodAIPowered, res.AnalysisMethod)
	assert.InDelta(t, 100.0, res.AICoverage, 0.001)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Sentiments.Positive)
	assert.Len(t, res.Comments, 3)
}

func TestRunFallsBackToRulesWhenAIFails(t *testing.T) {
	cfg := config.Default()
	ai := &fakeAI{fn: allFail}
	orch := newOrchestrator(cfg, ai)

	res, runErr := orch.Run(context.Background(), commentDataset(
		"Excelente servicio, muy conforme",
		"Pésima señal toda la semana",
	))
	require.Nil(t, runErr)

	assert.Equal(t, types.MethodRuleFallback, res.AnalysisMethod)
	assert.InDelta(t, 0.0, res.AICoverage, 0.001)
	assert.Equal(t, 2, res.Total, "every comment still gets analyzed")
	assert.Equal(t, 1, res.Sentiments.Positive)
	assert.Equal(t, 1, res.Sentiments.Negative)
}

func TestRunHybridCoverage(t *testing.T) {
	cfg := config.Default()
	// Three of five items come back usable; the rest stay nil.
	ai := &fakeAI{fn: func(texts []string) ([]*types.EngineResult, bool) {
		out := make([]*types.EngineResult, len(texts))
		for i := range out {
			if i < 3 {
				out[i] = engineResult("neutral")
			}
		}
		return out, true
	}}
	orch := newOrchestrator(cfg, ai)

	res, runErr := orch.Run(context.Background(), commentDataset(
		"uno bueno", "dos regular", "tres sin más", "cuatro lento", "cinco caro",
	))
	require.Nil(t, runErr)

	assert.Equal(t, types.MethodHybrid, res.AnalysisMethod)
	assert.InDelta(t, 60.0, res.AICoverage, 0.001)
	assert.Equal(t, 5, res.Total)
}

func TestRunRetriesFailedBatchAtLowerTiers(t *testing.T) {
	cfg := config.Default() // tiers 50/20/10
	ai := &fakeAI{fn: func(texts []string) ([]*types.EngineResult, bool) {
		if len(texts) > 10 {
			return nil, false
		}
		return allSucceed(texts)
	}}
	orch := newOrchestrator(cfg, ai)

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("comentario número %d sobre el servicio", i)
	}
	res, runErr := orch.Run(context.Background(), commentDataset(texts...))
	require.Nil(t, runErr)

	// 25 fails, resplits to 20+5; 20 fails, resplits to 10+10.
	assert.Equal(t, []int{25, 20, 10, 10, 5}, ai.sizes)
	assert.Equal(t, types.MethodAIPowered, res.AnalysisMethod)
	assert.InDelta(t, 100.0, res.AICoverage, 0.001)
}

func TestRunGivesUpAfterSmallestTier(t *testing.T) {
	cfg := config.Default()
	cfg.BatchTiers = []int{4, 2}
	ai := &fakeAI{fn: allFail}
	orch := newOrchestrator(cfg, ai)

	res, runErr := orch.Run(context.Background(), commentDataset(
		"uno", "dos", "tres", "cuatro",
	))
	require.Nil(t, runErr)

	assert.Equal(t, []int{4, 2, 2}, ai.sizes)
	assert.Equal(t, types.MethodRuleFallback, res.AnalysisMethod)
	assert.Equal(t, 4, res.Total)
}

func TestRunNoCommentColumn(t *testing.T) {
	cfg := config.Default()
	orch := newOrchestrator(cfg, &fakeAI{fn: allSucceed})

	ds := &dataset.Dataset{
		Columns: []string{"id", "monto"},
		Rows:    [][]string{{"1", "100"}, {"2", "230"}},
	}
	_, runErr := orch.Run(context.Background(), ds)
	require.NotNil(t, runErr)
	assert.Equal(t, types.ErrInput, runErr.Code)
}

func TestRunEmptyDataset(t *testing.T) {
	cfg := config.Default()
	orch := newOrchestrator(cfg, &fakeAI{fn: allSucceed})

	ds := &dataset.Dataset{Columns: []string{"Comentario"}, Rows: [][]string{{""}, {"   "}}}
	_, runErr := orch.Run(context.Background(), ds)
	require.NotNil(t, runErr)
	assert.Equal(t, types.ErrInput, runErr.Code)
}

func TestRunDeduplicatesComments(t *testing.T) {
	cfg := config.Default()
	orch := newOrchestrator(cfg, &fakeAI{fn: allSucceed})

	res, runErr := orch.Run(context.Background(), commentDataset(
		"Muy buen servicio",
		"muy buen servicio ", // same text modulo case and spacing
		"Otra opinión distinta",
	))
	require.Nil(t, runErr)

	assert.Equal(t, 3, res.RawTotal)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Comments, 2)
}

func TestRunAlwaysAttachesOversight(t *testing.T) {
	cfg := config.Default()
	orch := newOrchestrator(cfg, &fakeAI{fn: allFail})

	res, runErr := orch.Run(context.Background(), commentDataset("Todo normal este mes"))
	require.Nil(t, runErr)

	assert.Greater(t, res.Oversight.Confidence, 0.0)
	assert.NotNil(t, res.Oversight.Issues)
	assert.NotNil(t, res.Oversight.Metrics)
}
