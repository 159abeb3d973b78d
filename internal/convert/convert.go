package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/asset"
	"github.com/snaptext/snaptext/internal/common"
)

// Converter normalizes an uploaded image into a previewable encoding.
// Non-HEIC input passes through unchanged.
type Converter interface {
	Convert(ctx context.Context, up asset.Uploaded) (asset.Normalized, error)
}

type Config struct {
	HeicConverter string // heif-convert | magick | sips
	JPEGQuality   int    // 1..100, default 80
}

// HEICConverter shells out to an external converter binary for HEIC/HEIF
// input and returns everything else as-is.
type HEICConverter struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewHEICConverter(cfg Config, logger *slog.Logger) *HEICConverter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 80
	}
	return &HEICConverter{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner (tests).
func (c *HEICConverter) WithRunner(r Runner) *HEICConverter {
	c.runner = r
	return c
}

var heicExtRe = regexp.MustCompile(`(?i)\.(heic|heif)$`)

// Convert implements Converter. Conversion failure is reported as
// ErrConversionFailed; the caller is expected to fall back to the original
// bytes rather than abort the pipeline.
func (c *HEICConverter) Convert(ctx context.Context, up asset.Uploaded) (asset.Normalized, error) {
	if len(up.Bytes) == 0 {
		return asset.Normalized{}, common.NewAppError("EMPTY_INPUT", "no bytes to convert", common.ErrInvalidInput)
	}
	if !up.IsHEIC() {
		return asset.NormalizedFromUploaded(up), nil
	}

	out, err := c.convertHEICToJPEG(ctx, up.Bytes)
	if err != nil {
		c.logger.Warn("convert.heic.failed", "file", up.FileName, "converter", c.cfg.HeicConverter, "error", err)
		return asset.Normalized{}, common.NewAppError("HEIC_CONVERT", "heic to jpeg conversion", common.ErrConversionFailed)
	}

	name := heicExtRe.ReplaceAllString(up.FileName, ".jpg")
	if name == up.FileName {
		// mime said HEIC but the name had no matching extension
		name = up.FileName + ".jpg"
	}
	c.logger.Debug("convert.heic.ok", "file", up.FileName, "out", name, "bytes", len(out))
	return asset.Normalized{Bytes: out, MimeType: constants.MimeJPEG, FileName: name}, nil
}

// convertHEICToJPEG stages the bytes in a temp directory, runs the configured
// converter, and reads the produced JPEG back.
func (c *HEICConverter) convertHEICToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "st-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "upload.heic")
	out := filepath.Join(tmpDir, "converted.jpg")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	q := strconv.Itoa(c.cfg.JPEGQuality)
	switch c.cfg.HeicConverter {
	case "heif-convert":
		if _, errb, err2 := c.runner.Run(ctx, "heif-convert", "-q", q, in, out); err2 != nil {
			return nil, fmt.Errorf("heif-convert failed: %w: %s", err2, truncate(string(errb), 1<<10))
		}
	case "magick":
		if _, errb, err2 := c.runner.Run(ctx, "magick", in, "-quality", q, out); err2 != nil {
			return nil, fmt.Errorf("magick convert failed: %w: %s", err2, truncate(string(errb), 1<<10))
		}
	case "sips":
		if _, errb, err2 := c.runner.Run(ctx, "sips", "-s", "format", "jpeg", "-s", "formatOptions", q, in, "--out", out); err2 != nil {
			return nil, fmt.Errorf("sips convert failed: %w: %s", err2, truncate(string(errb), 1<<10))
		}
	default:
		return nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}

	converted, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	if len(converted) == 0 {
		return nil, fmt.Errorf("HEIC conversion produced empty output")
	}
	return converted, nil
}
