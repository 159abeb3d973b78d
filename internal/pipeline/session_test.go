package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/asset"
	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/export"
	"github.com/snaptext/snaptext/internal/extract"
	"github.com/snaptext/snaptext/internal/tabular"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeConverter) Convert(_ context.Context, up asset.Uploaded) (asset.Normalized, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return asset.Normalized{}, common.NewAppError("HEIC_CONVERT", "converter exploded", common.ErrConversionFailed)
	}
	if up.IsHEIC() {
		return asset.Normalized{
			Bytes:    []byte("jpeg-from-" + up.FileName),
			MimeType: constants.MimeJPEG,
			FileName: strings.TrimSuffix(strings.TrimSuffix(up.FileName, ".heic"), ".heif") + ".jpg",
		}, nil
	}
	return asset.NormalizedFromUploaded(up), nil
}

func (f *fakeConverter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	mu       sync.Mutex
	text     string
	err      error
	lastReq  extract.Request
	calls    int
	started  chan struct{} // if set, closed on first call
	release  chan struct{} // if set, call blocks until closed
	startOne sync.Once
}

func (f *fakeExtractor) Extract(_ context.Context, req extract.Request) (extract.Result, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	text, err := f.text, f.err
	f.mu.Unlock()
	if f.started != nil {
		f.startOne.Do(func() { close(f.started) })
	}
	if f.release != nil {
		<-f.release
	}
	if err != nil {
		return extract.Result{}, err
	}
	return extract.Result{Text: text, Provider: "fake"}, nil
}

func (f *fakeExtractor) last() extract.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestSession(conv *fakeConverter, ext *fakeExtractor) *Session {
	return NewSession(conv, ext, export.NewBuilder(nil), nil)
}

func pngUpload(name string) asset.Uploaded {
	return asset.Uploaded{Bytes: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png", FileName: name}
}

func heicUpload(name string) asset.Uploaded {
	return asset.Uploaded{Bytes: []byte("heic-bytes"), MimeType: constants.MimeHEIC, FileName: name}
}

func TestUploadPlainText(t *testing.T) {
	conv := &fakeConverter{}
	ext := &fakeExtractor{text: "Hello World"}
	s := newTestSession(conv, ext)

	snap, err := s.Upload(context.Background(), pngUpload("photo.png"))
	require.NoError(t, err)

	assert.Equal(t, constants.StateReady, snap.State)
	assert.Equal(t, "Hello World", snap.Text)
	assert.Equal(t, "photo.png", snap.FileName)
	assert.True(t, snap.PreviewAvailable)
	assert.Nil(t, snap.Grid)
	assert.Empty(t, snap.Error)

	// clipboard surface sees the same text
	text, err := s.ResultText()
	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)
}

func TestUploadHEICTabular(t *testing.T) {
	conv := &fakeConverter{}
	ext := &fakeExtractor{text: "Item,Qty\nApple,3\n\"Pear, ripe\",2"}
	s := newTestSession(conv, ext)

	_, err := s.SetMode(context.Background(), constants.ModeTabular)
	require.NoError(t, err)

	snap, err := s.Upload(context.Background(), heicUpload("invoice.heic"))
	require.NoError(t, err)

	assert.Equal(t, constants.StateReady, snap.State)
	assert.True(t, snap.PreviewAvailable, "converted jpeg must be previewable")
	assert.Equal(t, tabular.Grid{
		{"Item", "Qty"},
		{"Apple", "3"},
		{"Pear, ripe", "2"},
	}, snap.Grid)

	// extraction ran on the converted bytes, not the heic original
	req := ext.last()
	assert.Equal(t, constants.MimeJPEG, req.MimeType)
	assert.Equal(t, []byte("jpeg-from-invoice.heic"), req.Bytes)
}

func TestUploadConversionFailureDegrades(t *testing.T) {
	conv := &fakeConverter{fail: true}
	ext := &fakeExtractor{text: "scanned text"}
	s := newTestSession(conv, ext)

	snap, err := s.Upload(context.Background(), heicUpload("scan.heic"))
	require.NoError(t, err)

	assert.Equal(t, constants.StateReady, snap.State)
	assert.False(t, snap.PreviewAvailable, "no preview when conversion fails")
	require.Len(t, snap.Warnings, 1)
	assert.Contains(t, snap.Warnings[0], "preview unavailable")

	// extraction falls back to the original bytes
	assert.Equal(t, []byte("heic-bytes"), ext.last().Bytes)
	assert.Equal(t, constants.MimeHEIC, ext.last().MimeType)
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	conv := &fakeConverter{}
	ext := &fakeExtractor{text: "should not run"}
	s := newTestSession(conv, ext)

	snap, err := s.Upload(context.Background(), asset.Uploaded{
		Bytes: []byte("not an image"), MimeType: "text/plain", FileName: "notes.txt",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnsupportedFileType), "err = %v", err)

	// rejection leaves the session untouched
	assert.Equal(t, constants.StateIdle, snap.State)
	assert.Zero(t, conv.callCount())
	assert.Zero(t, ext.callCount())
}

func TestExtractionFailureKeepsAsset(t *testing.T) {
	conv := &fakeConverter{}
	ext := &fakeExtractor{err: common.NewAppError("GEMINI_EMPTY", "backend down", common.ErrExtractionFailed)}
	s := newTestSession(conv, ext)

	snap, err := s.Upload(context.Background(), pngUpload("photo.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionFailed), "err = %v", err)

	assert.Equal(t, constants.StateFailed, snap.State)
	assert.Contains(t, snap.Error, "failed to extract text")
	assert.True(t, snap.PreviewAvailable, "preview survives an extraction failure")
	assert.Equal(t, "photo.png", snap.FileName)

	// recovery: fix the backend and switch modes to retry on the held asset
	ext.mu.Lock()
	ext.err = nil
	ext.text = "a,b"
	ext.mu.Unlock()

	snap, err = s.SetMode(context.Background(), constants.ModeTabular)
	require.NoError(t, err)
	assert.Equal(t, constants.StateReady, snap.State)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 1, conv.callCount(), "mode switch must not reconvert")
}

func TestSetModeReusesNormalizedAsset(t *testing.T) {
	conv := &fakeConverter{}
	ext := &fakeExtractor{text: "a,b\nc,d"}
	s := newTestSession(conv, ext)

	first, err := s.Upload(context.Background(), heicUpload("invoice.heic"))
	require.NoError(t, err)
	require.True(t, first.PreviewAvailable)

	snap, err := s.SetMode(context.Background(), constants.ModeTabular)
	require.NoError(t, err)

	assert.Equal(t, constants.ModeTabular, snap.Mode)
	assert.Equal(t, constants.StateReady, snap.State)
	assert.NotNil(t, snap.Grid)
	assert.True(t, snap.PreviewAvailable, "preview must not be regenerated or dropped")
	assert.Equal(t, 1, conv.callCount(), "converter must run once per upload")
	assert.Equal(t, 2, ext.callCount())
}

func TestSetModeSameModeIsNoop(t *testing.T) {
	ext := &fakeExtractor{text: "x"}
	s := newTestSession(&fakeConverter{}, ext)

	_, err := s.Upload(context.Background(), pngUpload("photo.png"))
	require.NoError(t, err)

	snap, err := s.SetMode(context.Background(), constants.ModePlainText)
	require.NoError(t, err)
	assert.Equal(t, constants.StateReady, snap.State)
	assert.Equal(t, 1, ext.callCount(), "same-mode switch must not re-extract")
}

func TestSetModeWithoutAssetOnlyRecordsMode(t *testing.T) {
	ext := &fakeExtractor{text: "x"}
	s := newTestSession(&fakeConverter{}, ext)

	snap, err := s.SetMode(context.Background(), constants.ModeTabular)
	require.NoError(t, err)
	assert.Equal(t, constants.StateIdle, snap.State)
	assert.Equal(t, constants.ModeTabular, snap.Mode)
	assert.Zero(t, ext.callCount())
}

func TestReset(t *testing.T) {
	s := newTestSession(&fakeConverter{}, &fakeExtractor{text: "Hello"})

	_, err := s.Upload(context.Background(), pngUpload("photo.png"))
	require.NoError(t, err)

	snap := s.Reset()
	assert.Equal(t, constants.StateIdle, snap.State)
	assert.Empty(t, snap.Text)
	assert.Empty(t, snap.FileName)
	assert.False(t, snap.PreviewAvailable)

	_, err = s.ResultText()
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

// A reset issued while extraction is in flight wins: the late result must be
// discarded, not resurrected into the idle session.
func TestStaleExtractionDiscarded(t *testing.T) {
	ext := &fakeExtractor{
		text:    "late result",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestSession(&fakeConverter{}, ext)

	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := s.Upload(context.Background(), pngUpload("photo.png"))
		done <- snap
	}()

	<-ext.started
	s.Reset()
	close(ext.release)

	snap := <-done
	assert.Equal(t, constants.StateIdle, snap.State)
	assert.Empty(t, snap.Text)

	final := s.Snapshot()
	assert.Equal(t, constants.StateIdle, final.State)
	assert.Empty(t, final.Text)
	_, err := s.ResultText()
	assert.Error(t, err, "stale result must not be copyable")
}

func TestExportFormats(t *testing.T) {
	s := newTestSession(&fakeConverter{}, &fakeExtractor{text: "a,b\nc,d"})

	_, err := s.SetMode(context.Background(), constants.ModeTabular)
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), pngUpload("table.png"))
	require.NoError(t, err)

	art, err := s.Export("")
	require.NoError(t, err)
	assert.Equal(t, constants.MimeXLSX, art.MimeType, "tabular default export is a workbook")

	art, err = s.Export("txt")
	require.NoError(t, err)
	assert.Equal(t, "a,b\nc,d", string(art.Bytes))

	art, err = s.Export("csv")
	require.NoError(t, err)
	assert.Equal(t, constants.MimeCSV, art.MimeType)

	_, err = s.Export("pdf")
	assert.True(t, errors.Is(err, common.ErrInvalidInput), "err = %v", err)
}

func TestExportWithoutResult(t *testing.T) {
	s := newTestSession(&fakeConverter{}, &fakeExtractor{})
	_, err := s.Export("txt")
	assert.True(t, errors.Is(err, common.ErrInvalidInput), "err = %v", err)
}
