package asset

import (
	"path/filepath"
	"strings"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/common"
)

// Uploaded is the immutable record created on file selection. At most one is
// live per session; a new upload or reset discards the previous one entirely.
type Uploaded struct {
	Bytes    []byte
	MimeType string
	FileName string
}

// Normalized is derived from Uploaded by the format converter. For non-HEIC
// input it carries the exact same bytes.
type Normalized struct {
	Bytes    []byte
	MimeType string
	FileName string
}

// PreviewHandle holds a displayable data URL. An empty DataURL means the
// preview is unavailable, which is a valid terminal state, not an error.
type PreviewHandle struct {
	DataURL string
}

// Available reports whether a preview can be shown.
func (p PreviewHandle) Available() bool { return p.DataURL != "" }

// ExtractionResult is the raw backend output. Tabular grids are always
// re-derived from Text so the string stays the single source of truth.
type ExtractionResult struct {
	Text string
}

// Artifact is a named byte blob handed to a share/download collaborator.
type Artifact struct {
	Bytes    []byte
	MimeType string
	FileName string
}

// IsHEIC reports whether the upload needs conversion before preview.
func (u Uploaded) IsHEIC() bool {
	return constants.IsHEICMime(u.MimeType) || constants.IsHEICExt(filepath.Ext(u.FileName))
}

// Validate checks that the upload looks like an image: an image/* mime type,
// or a recognized extension (covers HEIC/HEIF files the browser reports with
// an empty or bogus mime). Empty bytes are rejected outright.
func (u Uploaded) Validate() error {
	if len(u.Bytes) == 0 {
		return common.NewAppError("EMPTY_UPLOAD", "uploaded file has no content", common.ErrInvalidInput)
	}
	if strings.HasPrefix(strings.ToLower(u.MimeType), "image/") {
		return nil
	}
	ext := constants.NormalizeExt(filepath.Ext(u.FileName))
	if _, ok := constants.ImageExtensions[ext]; ok {
		return nil
	}
	return common.NewAppError("UNSUPPORTED_FILE_TYPE",
		"expected an image file (JPG, PNG, HEIC, ...)", common.ErrUnsupportedFileType)
}

// NormalizedFromUploaded wraps the original bytes unchanged. Used both for
// the identity conversion and for the degrade path when conversion fails.
func NormalizedFromUploaded(u Uploaded) Normalized {
	return Normalized{Bytes: u.Bytes, MimeType: u.MimeType, FileName: u.FileName}
}
