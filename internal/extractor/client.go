package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/types"
)

// Client sends batches of comments to the external LLM analysis gateway and
// parses the structured response. It is the only component whose failure is
// expected: every transport, timeout or decoding problem is absorbed and
// reported as "no result", never as an error the orchestrator has to catch.
type Client struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client

	// Response cache keyed by normalized comment text. Guarded by a single
	// mutex; identical texts within a batch are sent at most once.
	mu    sync.Mutex
	cache map[string]types.EngineResult
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: cfg.Timeouts.Max},
		cache:      make(map[string]types.EngineResult),
	}
}

// gatewayEnvelope is the JSON object the gateway is instructed to return.
type gatewayEnvelope struct {
	Results []types.EngineResult `json:"results"`
}

// Analyze submits one batch. The returned slice is aligned with the input:
// blank comments and structurally invalid response items hold nil. ok is
// false when the batch produced nothing usable, including the case where
// more than MaxInvalidFraction of the response items were invalid.
func (c *Client) Analyze(ctx context.Context, comments []string) ([]*types.EngineResult, bool) {
	log := c.log.WithComponent("ai-client").WithField("batch_size", len(comments))
	if len(comments) == 0 {
		log.Warn("empty batch rejected")
		return nil, false
	}

	results := make([]*types.EngineResult, len(comments))
	indicesByKey := map[string][]int{} // in-batch duplicates collapse to one request
	var pendingKeys []string
	var pendingTexts []string
	nonBlank := 0

	c.mu.Lock()
	for i, raw := range comments {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		nonBlank++
		key := strings.ToLower(text)
		if cached, ok := c.cache[key]; ok {
			cp := cached
			results[i] = &cp
			continue
		}
		if _, seen := indicesByKey[key]; !seen {
			pendingKeys = append(pendingKeys, key)
			pendingTexts = append(pendingTexts, text)
		}
		indicesByKey[key] = append(indicesByKey[key], i)
	}
	c.mu.Unlock()

	if nonBlank == 0 {
		log.Warn("batch contained only blank comments")
		return nil, false
	}
	if len(pendingTexts) == 0 {
		log.Debug("batch served entirely from cache")
		return results, true
	}

	fetched, err := c.fetch(ctx, pendingTexts)
	if err != nil {
		log.WithError(err).Warn("gateway call failed, signaling no result")
		return nil, false
	}

	invalid := 0
	for _, r := range fetched {
		if r == nil {
			invalid++
		}
	}
	if frac := float64(invalid) / float64(len(fetched)); frac > c.cfg.MaxInvalidFraction {
		log.WithField("invalid_items", invalid).
			WithField("invalid_fraction", fmt.Sprintf("%.2f", frac)).
			Warn("too many invalid items, failing whole batch")
		return nil, false
	}
	if invalid > 0 {
		log.WithField("invalid_items", invalid).Warn("tolerating partially corrupt batch")
	}

	c.mu.Lock()
	for j, key := range pendingKeys {
		r := fetched[j]
		if r == nil {
			continue
		}
		c.cache[key] = *r
		for _, idx := range indicesByKey[key] {
			cp := *r
			results[idx] = &cp
		}
	}
	c.mu.Unlock()

	return results, true
}

// fetch performs the gateway round trip for the given unique texts, with
// retry/backoff bounded by the timeout tier for the batch size. The returned
// slice is aligned with texts; structurally invalid items are nil.
func (c *Client) fetch(ctx context.Context, texts []string) ([]*types.EngineResult, error) {
	if c.cfg.UseMockLLM {
		return mockResults(texts), nil
	}
	if c.cfg.LLMGatewayURL == "" || c.cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("llm gateway not configured")
	}

	log := c.log.WithComponent("ai-client")
	reqBody := map[string]any{
		"model": c.cfg.LLMModel,
		"messages": []map[string]string{
			{"role": "user", "content": buildBatchPrompt(texts)},
		},
		"temperature": 0.0,
	}
	data, _ := json.Marshal(reqBody)
	tier := c.cfg.TimeoutFor(len(texts))

	var envelope gatewayEnvelope
	var lastErr error
	op := func() error {
		// A failed decode can leave stale results behind; every attempt
		// starts from an empty envelope.
		envelope = gatewayEnvelope{}
		callCtx, cancel := context.WithTimeout(ctx, tier)
		defer cancel()

		req, _ := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.LLMGatewayURL, bytes.NewReader(data))
		req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if inner := contentFromChoices(body); inner != "" {
			if err := json.Unmarshal([]byte(inner), &envelope); err == nil && len(envelope.Results) > 0 {
				lastErr = nil
				return nil
			}
		}
		if fallback := firstBalancedJSON(string(body)); fallback != "" {
			if err := json.Unmarshal([]byte(fallback), &envelope); err == nil && len(envelope.Results) > 0 {
				lastErr = nil
				return nil
			}
		}

		lastErr = fmt.Errorf("no usable JSON in LLM output (status %d)", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * tier
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("llm analyze failed: %w", lastErr)
	}

	if len(envelope.Results) != len(texts) {
		return nil, fmt.Errorf("gateway returned %d items for %d comments", len(envelope.Results), len(texts))
	}

	out := make([]*types.EngineResult, len(texts))
	for i := range envelope.Results {
		r := envelope.Results[i]
		if structurallyValid(r) {
			out[i] = &r
		}
	}
	return out, nil
}

// structurallyValid enforces the response contract: sentiment, confidence,
// themes and emotions must all be present. A nil slice means the key was
// missing entirely, which is different from an empty list.
func structurallyValid(r types.EngineResult) bool {
	if strings.TrimSpace(r.Sentiment) == "" {
		return false
	}
	if r.Confidence <= 0 || r.Confidence > 1 {
		return false
	}
	if r.Themes == nil || r.Emotions == nil {
		return false
	}
	return true
}

// mockResults is the deterministic offline mode for demos, mirroring the
// gateway contract without network access.
func mockResults(texts []string) []*types.EngineResult {
	out := make([]*types.EngineResult, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		sentiment := "neutral"
		confidence := 0.7
		emotions := []string{}
		switch {
		case strings.Contains(lower, "excelente") || strings.Contains(lower, "bueno") || strings.Contains(lower, "gracias"):
			sentiment = "positive"
			confidence = 0.9
			emotions = []string{"satisfaccion"}
		case strings.Contains(lower, "malo") || strings.Contains(lower, "problema") || strings.Contains(lower, "lento"):
			sentiment = "negative"
			confidence = 0.88
			emotions = []string{"frustracion"}
		}
		out[i] = &types.EngineResult{
			Sentiment:  sentiment,
			Confidence: confidence,
			Themes:     []string{},
			PainPoints: []string{},
			Emotions:   emotions,
			Language:   "es",
		}
	}
	return out
}

// ResetCache drops all cached responses. Exposed for tests.
func (c *Client) ResetCache() {
	c.mu.Lock()
	c.cache = make(map[string]types.EngineResult)
	c.mu.Unlock()
}
