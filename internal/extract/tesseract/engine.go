package tesseract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/extract"
)

// Engine implements extract.TextExtractor with a local Tesseract client.
// It has no layout model, so tabular mode returns the same plain text as
// text mode, flagged with a warning.
type Engine struct {
	lang          string
	logger        *slog.Logger
	clientFactory func() *gosseract.Client
}

func NewEngine(lang string, logger *slog.Logger) *Engine {
	if lang == "" {
		lang = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lang: lang, logger: logger, clientFactory: gosseract.NewClient}
}

func (e *Engine) Extract(ctx context.Context, req extract.Request) (extract.Result, error) {
	start := time.Now()

	if len(req.Bytes) == 0 {
		return extract.Result{}, common.NewAppError("EMPTY_IMAGE", "no image bytes", common.ErrInvalidInput)
	}
	select {
	case <-ctx.Done():
		return extract.Result{}, common.NewAppError("CANCELLED", ctx.Err().Error(), common.ErrExtractionFailed)
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(req.Bytes); err != nil {
		e.logger.Error("extract.tesseract.set_image_failed", "error", err, "mime", req.MimeType)
		return extract.Result{}, common.NewAppError("TESSERACT_INPUT", "set image", common.ErrExtractionFailed)
	}
	if err := c.SetLanguage(e.lang); err != nil {
		return extract.Result{}, common.NewAppError("TESSERACT_LANG", "set language", common.ErrExtractionFailed)
	}

	text, err := c.Text()
	if err != nil {
		e.logger.Error("extract.tesseract.recognize_failed",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Result{}, common.NewAppError("TESSERACT_RECOGNIZE", "recognize text", common.ErrExtractionFailed)
	}

	res := extract.Result{Text: strings.TrimSpace(text), Provider: "tesseract"}
	if req.Mode == constants.ModeTabular {
		res.Warnings = append(res.Warnings, "tesseract has no layout model; returning plain text for tabular mode")
	}

	e.logger.Info("extract.tesseract.ok",
		"text_len", len(res.Text),
		"lang", e.lang,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
