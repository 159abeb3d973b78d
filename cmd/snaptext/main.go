package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/asset"
	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/convert"
	"github.com/snaptext/snaptext/internal/export"
	"github.com/snaptext/snaptext/internal/extract"
	"github.com/snaptext/snaptext/internal/extract/gemini"
	"github.com/snaptext/snaptext/internal/extract/openai"
	"github.com/snaptext/snaptext/internal/extract/tesseract"
	"github.com/snaptext/snaptext/internal/pipeline"
)

// One-shot CLI: extract text from a single image and print it, or write an
// export artifact when -out is given.
func main() {
	modeFlag := flag.String("mode", "text", "extraction mode: text | tabular")
	formatFlag := flag.String("format", "", "export format: txt | csv | xlsx (default by mode)")
	outFlag := flag.String("out", "", "write the export artifact to this path instead of printing text")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: snaptext [-mode text|tabular] [-format txt|csv|xlsx] [-out file] <image-path>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	mode, ok := constants.ParseMode(*modeFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid mode %q (want text or tabular)\n", *modeFlag)
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	converter := convert.NewHEICConverter(convert.Config{
		HeicConverter: cfg.Converter.HeicConverter,
		JPEGQuality:   cfg.Converter.JPEGQuality,
	}, logger)
	session := pipeline.NewSession(converter, buildExtractor(cfg, logger), export.NewBuilder(logger), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := session.SetMode(ctx, mode); err != nil {
		logger.Error("set mode", "error", err)
		os.Exit(1)
	}

	snap, err := session.Upload(ctx, asset.Uploaded{
		Bytes:    data,
		MimeType: mimeFromPath(path),
		FileName: filepath.Base(path),
	})
	if err != nil {
		logger.Error("extraction failed", "path", path, "error", err)
		os.Exit(1)
	}

	if *outFlag == "" {
		fmt.Println(snap.Text)
		return
	}

	art, err := session.Export(*formatFlag)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outFlag, art.Bytes, 0o644); err != nil {
		logger.Error("write artifact", "path", *outFlag, "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes, %s)\n", *outFlag, len(art.Bytes), art.MimeType)
}

func mimeFromPath(path string) string {
	switch constants.NormalizeExt(filepath.Ext(path)) {
	case "heic":
		return constants.MimeHEIC
	case "heif":
		return constants.MimeHEIF
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "webp":
		return "image/webp"
	case "tif", "tiff":
		return "image/tiff"
	default:
		return constants.MimeJPEG
	}
}

func buildExtractor(cfg *common.Config, logger *slog.Logger) extract.TextExtractor {
	switch cfg.Extractor.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.Extractor.APIKey,
			BaseURL:     cfg.Extractor.BaseURL,
			Model:       cfg.Extractor.Model,
			Temperature: cfg.Extractor.Temperature,
			Timeout:     cfg.Extractor.Timeout,
		}, logger)
	case "tesseract":
		return tesseract.NewEngine(cfg.Extractor.TesseractLang, logger)
	default:
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.Extractor.APIKey,
			Model:       cfg.Extractor.Model,
			Temperature: cfg.Extractor.Temperature,
			Timeout:     cfg.Extractor.Timeout,
		}, logger)
	}
}
