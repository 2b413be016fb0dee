package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/labresults-tracker/constants"
	"github.com/joseph-ayodele/labresults-tracker/internal/llm"
)

// ExtractResults implements llm.ResultExtractor using text-only chat/completions.
func (c *Client) ExtractResults(ctx context.Context, req llm.ExtractRequest) (llm.ExtractResponse, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
		"prep_method", req.PrepMethod,
		"prep_confidence", req.Confidence,
	)

	schema := llm.BuildExtractionJSONSchema(constants.ClassificationStrings())
	user := llm.BuildExtractionUserPrompt(req)

	content, raw, err := c.complete(ctx, c.cfg.Prompts.ExtractionSystem, user, schema)
	if err != nil {
		c.log.Error("llm.extract.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractResponse{}, raw, err
	}

	cleaned, dropped, err := llm.NormalizeExtractionJSON(content)
	if err != nil {
		c.log.Error("llm.extract.sanitize_failed", "req_id", rid, "error", err)
		return llm.ExtractResponse{}, content, fmt.Errorf("sanitize response: %w", err)
	}
	if len(dropped) > 0 {
		c.log.Warn("llm.extract.normalize_sanitize", "req_id", rid, "dropped", dropped)
	}

	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(cleaned),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractResponse{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.ExtractResponse
	if err := json.Unmarshal(cleaned, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed", "req_id", rid, "error", err)
		return llm.ExtractResponse{}, cleaned, fmt.Errorf("unmarshal fields: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"results", len(out.Results),
		"test_date", out.TestDate,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

// GroupNames implements llm.NameGrouper. The response must match the
// corrections schema exactly; anything else is an error so the caller can
// keep its mapping state untouched.
func (c *Client) GroupNames(ctx context.Context, known []llm.KnownMapping, unmapped []string) ([]llm.NameCorrection, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.group.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"known", len(known),
		"unmapped", len(unmapped),
	)

	schema := llm.BuildCorrectionsJSONSchema()
	user := llm.BuildStandardizeUserPrompt(known, unmapped)

	content, _, err := c.complete(ctx, c.cfg.Prompts.StandardizeSystem, user, schema)
	if err != nil {
		c.log.Error("llm.group.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if err := llm.ValidateJSONAgainstSchema(schema, content); err != nil {
		c.log.Error("llm.group.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(content),
		)
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var wrapper struct {
		Corrections []llm.NameCorrection `json:"corrections"`
	}
	if err := json.Unmarshal(content, &wrapper); err != nil {
		c.log.Error("llm.group.unmarshal_failed", "req_id", rid, "error", err)
		return nil, fmt.Errorf("unmarshal corrections: %w", err)
	}

	c.log.Info("llm.group.ok",
		"req_id", rid,
		"corrections", len(wrapper.Corrections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return wrapper.Corrections, nil
}

// complete performs one chat-completions round trip and returns the fenced-
// stripped message content plus the raw provider response.
func (c *Client) complete(ctx context.Context, system, user string, schema map[string]any) ([]byte, []byte, error) {
	body := map[string]any{
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}
	if model := c.cfg.Provider.modelField(c.cfg.Model); model != "" {
		body["model"] = model
	}

	raw, _, err := llm.SendJSON(ctx, c.httpClient, c.cfg.Provider.endpoint(), body, c.cfg.Provider.headers(), c.log)
	if err != nil {
		return nil, raw, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, raw, fmt.Errorf("decode provider response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, raw, fmt.Errorf("no choices in provider response")
	}
	content := llm.StripMarkdownFences(strings.TrimSpace(cc.Choices[0].Message.Content))
	return []byte(content), raw, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
