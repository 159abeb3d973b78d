package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/convert"
	"github.com/snaptext/snaptext/internal/export"
	"github.com/snaptext/snaptext/internal/extract"
	"github.com/snaptext/snaptext/internal/extract/gemini"
	"github.com/snaptext/snaptext/internal/extract/openai"
	"github.com/snaptext/snaptext/internal/extract/tesseract"
	"github.com/snaptext/snaptext/internal/pipeline"
	"github.com/snaptext/snaptext/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	converter := convert.NewHEICConverter(convert.Config{
		HeicConverter: cfg.Converter.HeicConverter,
		JPEGQuality:   cfg.Converter.JPEGQuality,
	}, logger)

	extractor := buildExtractor(cfg, logger)
	session := pipeline.NewSession(converter, extractor, export.NewBuilder(logger), logger)

	handler := server.NewHandler(session, server.Config{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http serving",
			"addr", cfg.Server.Addr,
			"provider", cfg.Extractor.Provider,
			"heic_converter", cfg.Converter.HeicConverter,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http serve", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
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
