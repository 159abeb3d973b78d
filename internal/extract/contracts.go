package extract

import (
	"context"

	"github.com/snaptext/snaptext/constants"
)

// Request carries the image payload and the mode selector to a backend.
type Request struct {
	Bytes    []byte
	MimeType string
	FileName string
	Mode     constants.ExtractionMode
}

// Result is the raw backend output. The contract obliges the backend to omit
// formatting markers (markdown fences etc.); no defensive stripping happens
// here, malformed output passes through unmodified.
type Result struct {
	Text     string
	Provider string
	Warnings []string
}

// TextExtractor is the interface the pipeline depends on. Implementations
// must not retry, cache, or deduplicate: requests are user-paced.
type TextExtractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}
