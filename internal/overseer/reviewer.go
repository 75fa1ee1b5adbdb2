package overseer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/types"
)

// reviewVerdict is the structured-output shape the review model must return.
type reviewVerdict struct {
	QualityScore float64  `json:"quality_score" jsonschema_description:"Overall plausibility of the report, 0 to 1"`
	Issues       []string `json:"issues" jsonschema_description:"Short descriptions of anything implausible"`
}

var reviewSchema = generateSchema[reviewVerdict]()

const reviewInstructions = `You are a quality reviewer for automated customer-feedback analysis reports.
You receive a compact JSON summary of one report: sentiment counts and
percentages, NPS, churn buckets and theme counts. Judge whether the numbers
are internally consistent and plausible for a telecom feedback batch.
Return ONLY JSON matching the schema: quality_score between 0 and 1, and a
short issues list (empty when nothing stands out).`

// OpenAIReviewer is the best-effort LLM second opinion used by the
// overseer. Any failure is returned to the caller, which simply skips the
// opinion.
type OpenAIReviewer struct {
	client *openai.Client
	model  string
}

func NewOpenAIReviewer(cfg *config.Config) *OpenAIReviewer {
	client := openai.NewClient(option.WithAPIKey(cfg.ReviewAPIKey))
	return &OpenAIReviewer{client: &client, model: cfg.ReviewModel}
}

func (r *OpenAIReviewer) Review(ctx context.Context, res *types.AggregateResult) (float64, []string, error) {
	summary := map[string]any{
		"total":                 res.Total,
		"duplicates":            res.Duplicates,
		"sentiments":            res.Sentiments,
		"sentiment_percentages": res.SentimentPercentages,
		"nps":                   res.NPS,
		"churn_risk": map[string]int{
			"low": res.ChurnRisk.Low, "medium": res.ChurnRisk.Medium, "high": res.ChurnRisk.High,
		},
		"theme_count":     len(res.Themes),
		"analysis_method": res.AnalysisMethod,
	}
	input, err := json.Marshal(summary)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal review summary: %w", err)
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "ReviewVerdict",
			Schema:      reviewSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Report review verdict JSON"),
			Type:        "json_schema",
		},
	}
	params := responses.ResponseNewParams{
		Model:           r.model,
		MaxOutputTokens: openai.Int(400),
		Instructions:    openai.String(reviewInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(string(input), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := r.client.Responses.New(ctx, params)
	if err != nil {
		return 0, nil, fmt.Errorf("review call: %w", err)
	}
	var verdict reviewVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.OutputText())), &verdict); err != nil {
		return 0, nil, fmt.Errorf("unmarshal review verdict: %w", err)
	}
	return math.Min(math.Max(verdict.QualityScore, 0), 1), verdict.Issues, nil
}

// generateSchema reflects a strict OpenAI-compatible JSON schema for T.
func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	ensureStrictObject(m)
	return m
}

// ensureStrictObject marks every object as closed and all properties
// required, which the strict structured-output mode demands.
func ensureStrictObject(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			var required []string
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				ensureStrictObject(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		ensureStrictObject(items)
	}
}
