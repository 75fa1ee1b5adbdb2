package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// TimeoutTiers are the per-call timeout bands for the LLM gateway. The tier
// is picked by batch size: small batches get the short band.
type TimeoutTiers struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Max    time.Duration
}

// SyntheticNPS holds the scoring bands used to derive a 0-10 score from
// sentiment and emotion intensity when the dataset has no real survey
// column. The defaults mirror the values tuned upstream; they are
// configurable pending product review.
type SyntheticNPS struct {
	PositiveBase    int     // starting score for positive comments
	PositiveBoost   float64 // added score per unit of intensity
	NeutralScore    int     // fixed score for neutral comments
	NegativeBase    int     // starting score for negative comments
	NegativePenalty float64 // subtracted score per unit of intensity
}

// Config is the full runtime configuration. It is built once at process
// start and injected into the orchestrator and every engine; no component
// reads ambient globals.
type Config struct {
	// Column resolution, in priority order, matched case-insensitively.
	CommentColumns []string
	NPSColumns     []string
	RatingColumns  []string

	// LLM gateway (primary analysis engine).
	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string
	UseMockLLM    bool

	// Batch/retry shape. A failed batch is retried at the next lower tier.
	BatchTiers         []int
	Timeouts           TimeoutTiers
	MaxInvalidFraction float64 // fraction of invalid items that fails a whole batch

	// Aggregation.
	Synthetic   SyntheticNPS
	MaxComments int // ceiling tolerated from the caller, extra rows are ignored

	// Oversight.
	StrictMode    bool
	MinConfidence float64
	ReviewAPIKey  string // enables the best-effort LLM second opinion when set
	ReviewModel   string
}

// Default returns the configuration with upstream-tuned defaults. Tests use
// this directly.
func Default() *Config {
	return &Config{
		CommentColumns: []string{
			"comentario final", "comentario", "comentarios", "comment",
			"comments", "feedback", "observaciones", "opinion", "texto",
		},
		NPSColumns: []string{
			"nps", "recomendacion", "recomendación", "puntuacion nps", "score",
		},
		RatingColumns: []string{
			"calificacion", "calificación", "rating", "satisfaccion", "estrellas",
		},
		LLMModel:   "gpt-4o-mini",
		BatchTiers: []int{50, 20, 10},
		Timeouts: TimeoutTiers{
			Short:  10 * time.Second,
			Medium: 25 * time.Second,
			Long:   45 * time.Second,
			Max:    90 * time.Second,
		},
		MaxInvalidFraction: 0.10,
		Synthetic: SyntheticNPS{
			PositiveBase:    8,
			PositiveBoost:   2.0,
			NeutralScore:    7,
			NegativeBase:    4,
			NegativePenalty: 3.0,
		},
		MaxComments:   2000,
		MinConfidence: 0.7,
		ReviewModel:   "gpt-4o-mini",
	}
}

// FromEnv builds the configuration from environment variables, falling back
// to defaults. Call godotenv.Load() before this in main.
func FromEnv() *Config {
	cfg := Default()

	cfg.LLMGatewayURL = os.Getenv("LLM_GATEWAY_URL")
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	if m := os.Getenv("LLM_MODEL"); m != "" {
		cfg.LLMModel = m
	}
	cfg.UseMockLLM = os.Getenv("ANALYZE_USE_MOCK_LLM") == "true"

	if v := os.Getenv("ANALYZE_COMMENT_COLUMNS"); v != "" {
		cfg.CommentColumns = splitList(v)
	}
	if v := os.Getenv("ANALYZE_BATCH_TIERS"); v != "" {
		if tiers := parseIntList(v); len(tiers) > 0 {
			cfg.BatchTiers = tiers
		}
	}
	if v := os.Getenv("ANALYZE_MAX_INVALID_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			cfg.MaxInvalidFraction = f
		}
	}
	if v := os.Getenv("ANALYZE_MAX_COMMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxComments = n
		}
	}
	cfg.StrictMode = os.Getenv("ANALYZE_STRICT_MODE") == "true"
	if v := os.Getenv("ANALYZE_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.MinConfidence = f
		}
	}
	cfg.ReviewAPIKey = os.Getenv("OPENAI_API_KEY")
	if m := os.Getenv("ANALYZE_REVIEW_MODEL"); m != "" {
		cfg.ReviewModel = m
	}
	return cfg
}

// TimeoutFor picks the timeout band for a batch of the given size.
func (c *Config) TimeoutFor(batchSize int) time.Duration {
	switch {
	case batchSize <= 10:
		return c.Timeouts.Short
	case batchSize <= 20:
		return c.Timeouts.Medium
	case batchSize <= 50:
		return c.Timeouts.Long
	default:
		return c.Timeouts.Max
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntList(v string) []int {
	var out []int
	for _, p := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil
		}
		out = append(out, n)
	}
	return out
}
