package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vincent-petithory/dataurl"

	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/extract"
)

// Extract implements extract.TextExtractor against an OpenAI-compatible
// /chat/completions endpoint with the image attached as a base64 data URL.
func (c *Client) Extract(ctx context.Context, req extract.Request) (extract.Result, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	if len(req.Bytes) == 0 {
		return extract.Result{}, common.NewAppError("EMPTY_IMAGE", "no image bytes", common.ErrInvalidInput)
	}

	c.logger.Info("extract.openai.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"mode", string(req.Mode),
		"image_bytes", len(req.Bytes),
		"mime", req.MimeType,
	)

	instruction := extract.BuildInstruction(req.Mode)
	imageURL := dataurl.New(req.Bytes, req.MimeType).String()

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": instruction},
					{"type": "image_url", "image_url": map[string]any{"url": imageURL}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("extract.openai.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, common.NewAppError("OPENAI_HTTP", err.Error(), common.ErrExtractionFailed)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("extract.openai.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, common.NewAppError("OPENAI_DECODE", "decode response", common.ErrExtractionFailed)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("extract.openai.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, common.NewAppError("OPENAI_EMPTY", "no choices in response", common.ErrExtractionFailed)
	}

	// The backend is instructed to omit fences; its output is NOT cleaned up
	// here, only whitespace-trimmed.
	text := strings.TrimSpace(cc.Choices[0].Message.Content)

	c.logger.Info("extract.openai.ok",
		"req_id", rid,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.Result{Text: text, Provider: "openai"}, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.logger.Warn("openai response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
