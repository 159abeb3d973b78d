package gemini

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/extract"
)

// Config for the Gemini API client.
type Config struct {
	APIKey      string
	Model       string // e.g., "gemini-2.0-flash"
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Extract implements extract.TextExtractor via GenerateContent with the image
// attached as inline bytes.
func (c *Client) Extract(ctx context.Context, req extract.Request) (extract.Result, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	if len(req.Bytes) == 0 {
		return extract.Result{}, common.NewAppError("EMPTY_IMAGE", "no image bytes", common.ErrInvalidInput)
	}

	c.logger.Info("extract.gemini.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"mode", string(req.Mode),
		"image_bytes", len(req.Bytes),
		"mime", req.MimeType,
	)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		c.logger.Error("extract.gemini.client_error", "req_id", rid, "error", err)
		return extract.Result{}, common.NewAppError("GEMINI_CLIENT", err.Error(), common.ErrExtractionFailed)
	}

	mime := req.MimeType
	if mime == "" {
		mime = guessMime(req.FileName)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(extract.BuildInstruction(req.Mode)),
		genai.NewPartFromBytes(req.Bytes, mime),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
	})
	if err != nil {
		c.logger.Error("extract.gemini.generate_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, common.NewAppError("GEMINI_GENERATE", err.Error(), common.ErrExtractionFailed)
	}

	// Fence stripping is intentionally NOT performed; the model is trusted to
	// honor the no-markdown instruction.
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		c.logger.Error("extract.gemini.empty_response",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, common.NewAppError("GEMINI_EMPTY", "empty response", common.ErrExtractionFailed)
	}

	c.logger.Info("extract.gemini.ok",
		"req_id", rid,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.Result{Text: text, Provider: "gemini"}, nil
}

func guessMime(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".heic"):
		return "image/heic"
	case strings.HasSuffix(n, ".heif"):
		return "image/heif"
	case strings.HasSuffix(n, ".png"):
		return "image/png"
	default:
		return "image/jpeg"
	}
}
