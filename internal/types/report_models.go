// internal/types/report_models.go
package types

import (
	"fmt"
	"time"
)

// --------------------------------------------
// Aggregate report delivered to the caller
// --------------------------------------------

type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type SentimentPercentages struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// ThemeSummary is the frequency roll-up for one theme, with up to three
// example comments.
type ThemeSummary struct {
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// EmotionSummary is the emotion distribution across the batch.
type EmotionSummary struct {
	Distribution     map[string]int `json:"distribution"`
	AverageIntensity float64        `json:"average_intensity"`
}

// NPSBlock carries the Net Promoter Score. FromSurvey is true when the score
// came from a real 0-10 recommendation column rather than being synthesized
// from sentiment.
type NPSBlock struct {
	Score      float64 `json:"score"`
	Promoters  int     `json:"promoters"`
	Passives   int     `json:"passives"`
	Detractors int     `json:"detractors"`
	FromSurvey bool    `json:"from_survey"`
}

// ChurnDetail is the per-comment churn entry inside the churn block.
type ChurnDetail struct {
	Row     int       `json:"row"`
	Text    string    `json:"text"`
	Level   RiskLevel `json:"level"`
	Score   float64   `json:"score"`
	Factors []string  `json:"factors"`
}

// ChurnBlock buckets churn risk across the batch.
type ChurnBlock struct {
	Low     int           `json:"low"`
	Medium  int           `json:"medium"`
	High    int           `json:"high"`
	Details []ChurnDetail `json:"details"`
}

// --------------------------------------------
// Oversight block attached by the Quality Overseer
// --------------------------------------------

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueCountMismatch      IssueKind = "count_mismatch"
	IssuePercentageMismatch IssueKind = "percentage_mismatch"
	IssueMissingField       IssueKind = "missing_field"
	IssueImplausible        IssueKind = "implausible_sentiment"
	IssueNPSMismatch        IssueKind = "nps_mismatch"
	IssueLowConfidence      IssueKind = "low_confidence"
)

// ValidationIssue is a finding recorded during oversight. Issues are data,
// not control flow: the run still completes.
type ValidationIssue struct {
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

type OversightBlock struct {
	Confidence  float64            `json:"confidence"`
	Valid       bool               `json:"valid"`
	Metrics     map[string]float64 `json:"metrics"`
	Issues      []ValidationIssue  `json:"issues"`
	Suggestions []string           `json:"suggestions"`
}

// AnalyzedComment pairs a source comment with its canonical result.
type AnalyzedComment struct {
	Row    int              `json:"row"`
	Text   string           `json:"text"`
	Result PerCommentResult `json:"result"`
}

// AggregateResult is the single report produced per pipeline run. Built once
// by the normalizer, amended in place by the overseer, immutable afterward.
type AggregateResult struct {
	Total                int                     `json:"total"`
	RawTotal             int                     `json:"raw_total"`
	Duplicates           int                     `json:"duplicates"`
	Comments             []AnalyzedComment       `json:"comments"`
	Sentiments           SentimentCounts         `json:"sentiments"`
	SentimentPercentages SentimentPercentages    `json:"sentiment_percentages"`
	Themes               map[string]ThemeSummary `json:"themes"`
	Emotions             EmotionSummary          `json:"emotions"`
	NPS                  NPSBlock                `json:"nps"`
	ChurnRisk            ChurnBlock              `json:"churn_risk"`
	AnalysisMethod       AnalysisMethod          `json:"analysis_method"`
	AICoverage           float64                 `json:"ai_coverage"`
	AnalysisDate         time.Time               `json:"analysis_date"`
	Oversight            OversightBlock          `json:"oversight"`
}

// --------------------------------------------
// Structured errors crossing the orchestrator boundary
// --------------------------------------------

type ErrorCode string

const (
	ErrInput  ErrorCode = "INPUT_ERROR"
	ErrSystem ErrorCode = "SYSTEM_ERROR"
)

// AnalysisError is the structured error object returned to callers on a
// fatal fault. External-service failures never surface as one of these.
type AnalysisError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewInputError(format string, args ...any) *AnalysisError {
	return &AnalysisError{Code: ErrInput, Message: fmt.Sprintf(format, args...)}
}

func NewSystemError(format string, args ...any) *AnalysisError {
	return &AnalysisError{Code: ErrSystem, Message: fmt.Sprintf(format, args...)}
}
