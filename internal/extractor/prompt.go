package extractor

import (
	"encoding/json"
	"fmt"
)

// buildBatchPrompt builds the strict-schema prompt for one batch. The
// gateway must answer with one result object per comment, in order.
func buildBatchPrompt(texts []string) string {
	numbered := make([]map[string]any, len(texts))
	for i, t := range texts {
		numbered[i] = map[string]any{"index": i, "text": t}
	}
	commentsJSON, _ := json.MarshalIndent(numbered, "", "  ")

	prompt := `You are a customer feedback analysis engine for a telecom provider.

Analyze EVERY comment below. Comments are mostly Spanish; detect the language
and, when it is not Spanish, include a Spanish translation.

----------------------------------------------------------------------
SCHEMA (STRICT - RETURN ONLY JSON)
{
  "results": [
    {
      "sentiment": "positive|negative|neutral",
      "confidence": 0.0,
      "themes": [],
      "pain_points": [],
      "emotions": [],
      "language": "",
      "translation": ""
    }
  ]
}
----------------------------------------------------------------------

RULES:
1. Return exactly one result object per comment, in the same order.
2. confidence is a float between 0 and 1.
3. themes, pain_points and emotions are short lowercase tags; use empty
   arrays when nothing applies, never omit the keys.
4. DO NOT include commentary.
   DO NOT wrap the JSON in backticks.

COMMENTS:
%s

Return ONLY valid JSON matching the schema.
`
	return fmt.Sprintf(prompt, string(commentsJSON))
}
