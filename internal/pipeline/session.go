package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/asset"
	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/convert"
	"github.com/snaptext/snaptext/internal/export"
	"github.com/snaptext/snaptext/internal/extract"
	"github.com/snaptext/snaptext/internal/preview"
	"github.com/snaptext/snaptext/internal/tabular"
)

// Session is the state machine tying converter, preview, extraction, and
// export together for one upload cycle. All transient state lives here; at
// most one uploaded/normalized asset pair is live at a time.
//
// Long-running work (conversion, backend extraction) runs outside the lock.
// Every user action bumps a sequence token; a completion only mutates state
// when its token still matches, so stale in-flight results are discarded
// (last writer wins).
type Session struct {
	id        string
	logger    *slog.Logger
	converter convert.Converter
	extractor extract.TextExtractor
	exporter  *export.Builder

	mu         sync.Mutex
	seq        uint64
	state      constants.PipelineState
	mode       constants.ExtractionMode
	uploaded   *asset.Uploaded
	normalized *asset.Normalized
	preview    asset.PreviewHandle
	result     *asset.ExtractionResult
	warnings   []string
	lastErr    string
}

// Snapshot is a point-in-time copy of the session state for callers.
type Snapshot struct {
	SessionID        string                   `json:"session_id"`
	State            constants.PipelineState  `json:"state"`
	Mode             constants.ExtractionMode `json:"mode"`
	FileName         string                   `json:"file_name,omitempty"`
	PreviewAvailable bool                     `json:"preview_available"`
	Text             string                   `json:"text,omitempty"`
	Grid             tabular.Grid             `json:"grid,omitempty"`
	Warnings         []string                 `json:"warnings,omitempty"`
	Error            string                   `json:"error,omitempty"`
}

func NewSession(converter convert.Converter, extractor extract.TextExtractor, exporter *export.Builder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:        uuid.New().String(),
		logger:    logger,
		converter: converter,
		extractor: extractor,
		exporter:  exporter,
		state:     constants.StateIdle,
		mode:      constants.ModePlainText,
	}
}

// Upload starts a new cycle: validate, normalize, preview, extract. An
// invalid file is rejected without touching the current state. Conversion
// failure degrades to a previewless run on the original bytes.
func (s *Session) Upload(ctx context.Context, up asset.Uploaded) (Snapshot, error) {
	if err := up.Validate(); err != nil {
		s.logger.Warn("pipeline.upload.rejected", "file", up.FileName, "mime", up.MimeType, "error", err)
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.seq++
	tok := s.seq
	s.clearLocked()
	s.uploaded = &up
	s.state = constants.StateAwaitingPreview
	mode := s.mode
	s.mu.Unlock()

	s.logger.Info("pipeline.upload.accepted", "session_id", s.id, "file", up.FileName, "bytes", len(up.Bytes))

	norm, ph, warn := s.normalize(ctx, up)

	s.mu.Lock()
	if tok != s.seq {
		s.logger.Info("pipeline.upload.superseded", "session_id", s.id, "file", up.FileName)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.normalized = &norm
	s.preview = ph
	if warn != "" {
		s.warnings = append(s.warnings, warn)
	}
	s.state = constants.StateExtracting
	s.mu.Unlock()

	return s.extractInto(ctx, tok, norm, mode)
}

// SetMode switches the extraction mode. With an asset held it re-enters
// extraction on the existing normalized bytes; the preview is not
// regenerated. Without an asset it only records the mode.
func (s *Session) SetMode(ctx context.Context, mode constants.ExtractionMode) (Snapshot, error) {
	s.mu.Lock()
	if mode == s.mode {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.mode = mode
	if s.normalized == nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.seq++
	tok := s.seq
	norm := *s.normalized
	s.result = nil
	s.lastErr = ""
	s.state = constants.StateExtracting
	s.mu.Unlock()

	s.logger.Info("pipeline.mode.changed", "session_id", s.id, "mode", string(mode))
	return s.extractInto(ctx, tok, norm, mode)
}

// Reset discards all held assets and results unconditionally.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.clearLocked()
	s.state = constants.StateIdle
	s.logger.Info("pipeline.reset", "session_id", s.id)
	return s.snapshotLocked()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// PreviewDataURL returns the current preview, if one is available.
func (s *Session) PreviewDataURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview.DataURL, s.preview.Available()
}

// ResultText returns the current extraction text for the clipboard surface.
func (s *Session) ResultText() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil || s.result.Text == "" {
		return "", common.NewAppError("NO_RESULT", "no extracted text to copy", common.ErrInvalidInput)
	}
	return s.result.Text, nil
}

// Export builds a downloadable artifact from the current result. Format is
// one of "", "txt", "csv", "xlsx"; empty picks the mode default.
func (s *Session) Export(format string) (asset.Artifact, error) {
	s.mu.Lock()
	if s.result == nil || s.result.Text == "" {
		s.mu.Unlock()
		return asset.Artifact{}, common.NewAppError("NO_RESULT", "no extraction result to export", common.ErrInvalidInput)
	}
	res := *s.result
	mode := s.mode
	s.mu.Unlock()

	switch format {
	case "":
		return s.exporter.Build(res, mode)
	case "txt":
		return s.exporter.BuildText(res), nil
	case "csv":
		return s.exporter.BuildCSV(res)
	case "xlsx":
		return s.exporter.Build(res, constants.ModeTabular)
	default:
		return asset.Artifact{}, common.NewAppError("BAD_FORMAT", "format must be txt, csv, or xlsx", common.ErrInvalidInput)
	}
}

// normalize runs the converter and derives the preview. On conversion failure
// the original bytes come back with an empty preview and a warning; preview
// and extraction are independent failure domains.
func (s *Session) normalize(ctx context.Context, up asset.Uploaded) (asset.Normalized, asset.PreviewHandle, string) {
	norm, err := s.converter.Convert(ctx, up)
	warn := ""
	if err != nil {
		s.logger.Warn("pipeline.convert.degraded", "session_id", s.id, "file", up.FileName, "error", err)
		norm = asset.NormalizedFromUploaded(up)
		warn = "preview unavailable: conversion failed, extracting from original file"
	}
	return norm, preview.Generate(norm), warn
}

// extractInto runs the backend request and applies the outcome unless a newer
// action superseded it in the meantime.
func (s *Session) extractInto(ctx context.Context, tok uint64, norm asset.Normalized, mode constants.ExtractionMode) (Snapshot, error) {
	start := time.Now()
	res, err := s.extractor.Extract(ctx, extract.Request{
		Bytes:    norm.Bytes,
		MimeType: norm.MimeType,
		FileName: norm.FileName,
		Mode:     mode,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok != s.seq {
		s.logger.Info("pipeline.extract.stale_discarded",
			"session_id", s.id, "token", tok, "current", s.seq)
		return s.snapshotLocked(), nil
	}

	if err != nil {
		s.state = constants.StateFailed
		s.lastErr = "failed to extract text: " + err.Error()
		s.logger.Error("pipeline.extract.failed",
			"session_id", s.id,
			"file", norm.FileName,
			"mode", string(mode),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return s.snapshotLocked(), err
	}

	s.result = &asset.ExtractionResult{Text: res.Text}
	s.warnings = append(s.warnings, res.Warnings...)
	s.lastErr = ""
	s.state = constants.StateReady
	s.logger.Info("pipeline.extract.ok",
		"session_id", s.id,
		"provider", res.Provider,
		"mode", string(mode),
		"text_len", len(res.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return s.snapshotLocked(), nil
}

func (s *Session) clearLocked() {
	s.uploaded = nil
	s.normalized = nil
	s.preview = asset.PreviewHandle{}
	s.result = nil
	s.warnings = nil
	s.lastErr = ""
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:        s.id,
		State:            s.state,
		Mode:             s.mode,
		PreviewAvailable: s.preview.Available(),
		Warnings:         append([]string(nil), s.warnings...),
		Error:            s.lastErr,
	}
	if s.uploaded != nil {
		snap.FileName = s.uploaded.FileName
	}
	if s.result != nil {
		snap.Text = s.result.Text
		if s.mode == constants.ModeTabular {
			// grid is always re-derived from the text, never cached
			snap.Grid = tabular.Parse(s.result.Text)
		}
	}
	return snap
}
