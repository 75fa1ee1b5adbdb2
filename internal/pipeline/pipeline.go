// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/dataset"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/normalizer"
	"feedback-insights-go/internal/rules"
	"feedback-insights-go/internal/types"
)

// State names one step of the analysis state machine. AI failure is a
// modeled transition here, not a caught exception.
type State string

const (
	StateExtracting  State = "extracting"
	StateAIAttempt   State = "ai_attempt"
	StateAISuccess   State = "ai_success"
	StateAIPartial   State = "ai_partial"
	StateAIFailed    State = "ai_failed"
	StateNormalizing State = "normalizing"
	StateOverseeing  State = "overseeing"
	StateDone        State = "done"
	StateError       State = "error"
)

// AIClient is the orchestrator's view of the AI analysis engine. The
// returned slice is aligned with the submitted comments; nil entries are
// items the engine could not analyze. ok=false means the whole batch
// produced nothing usable.
type AIClient interface {
	Analyze(ctx context.Context, comments []string) ([]*types.EngineResult, bool)
}

// Overseer is the quality pass applied to the normalized aggregate.
type Overseer interface {
	Review(ctx context.Context, res *types.AggregateResult) *types.AggregateResult
}

// Orchestrator sequences extraction, AI analysis, fallback, normalization
// and oversight for one dataset. It holds no per-run state, so concurrent
// runs need no coordination.
type Orchestrator struct {
	cfg      *config.Config
	log      *logger.Logger
	ai       AIClient
	rules    *rules.Engine
	norm     *normalizer.Normalizer
	overseer Overseer
}

func New(cfg *config.Config, log *logger.Logger, ai AIClient, engine *rules.Engine, norm *normalizer.Normalizer, ov Overseer) *Orchestrator {
	return &Orchestrator{cfg: cfg, log: log, ai: ai, rules: engine, norm: norm, overseer: ov}
}

// Run executes the full pipeline for one dataset. Callers receive either a
// complete aggregate (possibly flagged low-confidence) or a structured
// error, never both and never a partial result.
func (o *Orchestrator) Run(ctx context.Context, ds *dataset.Dataset) (*types.AggregateResult, *types.AnalysisError) {
	log := o.log.WithComponent("pipeline").WithField("run_id", uuid.New().String())

	// Extracting
	log.WithField("state", StateExtracting).Info("resolving columns")
	cols, err := dataset.Resolve(ds, o.cfg)
	if err != nil {
		log.WithField("state", StateError).WithError(err).Warn("extraction failed")
		return nil, types.NewInputError("no comment column found in dataset")
	}
	raw := dataset.ExtractComments(ds, cols, o.cfg.MaxComments)
	if len(raw) == 0 {
		log.WithField("state", StateError).Warn("dataset has no usable comments")
		return nil, types.NewInputError("dataset contains no comments")
	}

	comments, duplicates := dedupe(raw)
	total := len(comments)
	log.WithField("raw_total", len(raw)).
		WithField("total", total).
		WithField("duplicates", duplicates).
		Info("comments extracted")

	// AIAttempt
	log.WithField("state", StateAIAttempt).WithField("batch_tier", o.cfg.BatchTiers[0]).Info("submitting to AI engine")
	engineResults := o.attemptAI(ctx, comments)
	covered := 0
	for _, r := range engineResults {
		if r != nil {
			covered++
		}
	}

	var (
		aiState  State
		method   types.AnalysisMethod
		coverage float64
	)
	switch {
	case covered == total:
		aiState, method, coverage = StateAISuccess, types.MethodAIPowered, 100.0
	case covered == 0:
		aiState, method, coverage = StateAIFailed, types.MethodRuleFallback, 0.0
	default:
		aiState, method = StateAIPartial, types.MethodHybrid
		coverage = round1(float64(covered) / float64(total) * 100)
	}
	log.WithField("state", aiState).
		WithField("ai_covered", covered).
		WithField("ai_coverage", coverage).
		Info("AI attempt settled")

	// Normalizing: AI output where available, rule engine for the rest.
	log.WithField("state", StateNormalizing).Info("normalizing results")
	results := make([]types.PerCommentResult, total)
	for i, c := range comments {
		if er := engineResults[i]; er != nil {
			results[i] = o.norm.FromEngine(*er, c.Text)
		} else {
			results[i] = o.rules.Analyze(c.Text, c.Rating)
		}
	}
	agg, aggErr := o.norm.Aggregate(normalizer.Input{
		Comments:   comments,
		Results:    results,
		Method:     method,
		AICoverage: coverage,
		RawTotal:   len(raw),
		Duplicates: duplicates,
	})
	if aggErr != nil {
		log.WithField("state", StateError).WithError(aggErr).Error("normalization failed")
		return nil, types.NewSystemError("normalization failed: %v", aggErr)
	}

	// Overseeing
	log.WithField("state", StateOverseeing).Info("running quality oversight")
	agg = o.overseer.Review(ctx, agg)

	log.WithField("state", StateDone).Info("pipeline complete")
	return agg, nil
}

// attemptAI submits comments in tier-sized batches. A failed batch is
// retried at the next lower tier (smaller batches are cheaper to retry)
// before those comments fall through to the rule engine. The returned slice
// is aligned with comments.
func (o *Orchestrator) attemptAI(ctx context.Context, comments []types.Comment) []*types.EngineResult {
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	out := make([]*types.EngineResult, len(texts))
	size := o.cfg.BatchTiers[0]
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batch := o.analyzeAtTier(ctx, texts[start:end], 0)
		copy(out[start:end], batch)
	}
	return out
}

// analyzeAtTier runs one batch at the given tier, splitting into the next
// smaller tier on failure. When the last tier fails the batch is given up
// and its slots stay nil.
func (o *Orchestrator) analyzeAtTier(ctx context.Context, texts []string, tier int) []*types.EngineResult {
	results, ok := o.ai.Analyze(ctx, texts)
	if ok {
		return results
	}
	next := tier + 1
	if next >= len(o.cfg.BatchTiers) {
		o.log.WithComponent("pipeline").
			WithField("batch_size", len(texts)).
			Warn("batch failed at smallest tier, falling back to rule engine")
		return make([]*types.EngineResult, len(texts))
	}
	size := o.cfg.BatchTiers[next]
	if size >= len(texts) {
		// Splitting would not shrink the batch; go straight down a tier.
		return o.analyzeAtTier(ctx, texts, next)
	}
	out := make([]*types.EngineResult, len(texts))
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		copy(out[start:end], o.analyzeAtTier(ctx, texts[start:end], next))
	}
	return out
}

// dedupe collapses comments with identical normalized text, keeping the
// first occurrence. The aggregate reports raw and duplicate counts so no
// information is lost.
func dedupe(raw []types.Comment) ([]types.Comment, int) {
	seen := map[string]bool{}
	out := make([]types.Comment, 0, len(raw))
	for _, c := range raw {
		key := strings.ToLower(strings.TrimSpace(c.Text))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, len(raw) - len(out)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
