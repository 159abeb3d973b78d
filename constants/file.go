package constants

import "strings"

// ImageExtensions holds the accepted upload extensions. HEIC/HEIF are accepted
// regardless of the browser-reported mime type.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"webp": {},
	"tif":  {},
	"tiff": {},
	"heic": {},
	"heif": {},
}

// PreviewableMimeTypes are the mime types a browser can render inline.
// HEIC/HEIF are deliberately absent: they must be converted first.
var PreviewableMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/bmp":  {},
	"image/webp": {},
	"image/tiff": {},
}

const (
	MimeJPEG = "image/jpeg"
	MimeHEIC = "image/heic"
	MimeHEIF = "image/heif"
	MimeCSV  = "text/csv"
	MimeText = "text/plain; charset=utf-8"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHEICExt reports whether the (normalized or raw) extension is HEIC/HEIF.
func IsHEICExt(ext string) bool {
	e := NormalizeExt(ext)
	return e == "heic" || e == "heif"
}

// IsHEICMime reports whether the mime type names a HEIC/HEIF container.
func IsHEICMime(mime string) bool {
	m := strings.ToLower(strings.TrimSpace(mime))
	return m == MimeHEIC || m == MimeHEIF
}

// IsPreviewable reports whether a browser can render the mime type inline.
func IsPreviewable(mime string) bool {
	_, ok := PreviewableMimeTypes[strings.ToLower(strings.TrimSpace(mime))]
	return ok
}
