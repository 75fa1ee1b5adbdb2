package types

// Sentiment is the canonical three-way classification.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// RiskLevel buckets churn risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Urgency is an ordinal priority, P0 most urgent.
type Urgency string

const (
	UrgencyP0 Urgency = "P0"
	UrgencyP1 Urgency = "P1"
	UrgencyP2 Urgency = "P2"
	UrgencyP3 Urgency = "P3"
)

// AnalysisMethod tags which engine(s) produced an aggregate.
type AnalysisMethod string

const (
	MethodAIPowered    AnalysisMethod = "AI_POWERED"
	MethodHybrid       AnalysisMethod = "HYBRID_AI_RULE"
	MethodRuleFallback AnalysisMethod = "RULE_BASED_FALLBACK"
	MethodError        AnalysisMethod = "ERROR"
)

// Comment is one ingested feedback row. Immutable after creation.
type Comment struct {
	Row      int      `json:"row"`
	Text     string   `json:"text"`
	NPSScore *int     `json:"nps_score,omitempty"` // 0-10 recommendation score when the dataset has one
	Rating   *float64 `json:"rating,omitempty"`    // separate numeric rating when present
}

// EngineResult is the AI engine's native per-comment shape as decoded from
// the LLM gateway response, before normalization.
type EngineResult struct {
	Sentiment   string   `json:"sentiment"`
	Confidence  float64  `json:"confidence"`
	Themes      []string `json:"themes"`
	PainPoints  []string `json:"pain_points"`
	Emotions    []string `json:"emotions"`
	Language    string   `json:"language"`
	Translation string   `json:"translation,omitempty"`
}

// ChurnAssessment is the per-comment churn estimate.
type ChurnAssessment struct {
	Level   RiskLevel `json:"level"`
	Score   float64   `json:"score"`
	Factors []string  `json:"factors"`
}

// PerCommentResult is the canonical per-comment analysis produced by either
// engine. Themes, pain points and emotions may be empty but are never nil.
// Language and Translation only carry values on the AI path; the rule engine
// cannot detect either.
type PerCommentResult struct {
	Sentiment        Sentiment       `json:"sentiment"`
	Confidence       float64         `json:"confidence"`
	Themes           []string        `json:"themes"`
	PainPoints       []string        `json:"pain_points"`
	Emotions         []string        `json:"emotions"`
	DominantEmotion  string          `json:"dominant_emotion,omitempty"`
	EmotionIntensity float64         `json:"emotion_intensity"`
	Churn            ChurnAssessment `json:"churn"`
	Urgency          Urgency         `json:"urgency"`
	Language         string          `json:"language,omitempty"`
	Translation      string          `json:"translation,omitempty"`
}
