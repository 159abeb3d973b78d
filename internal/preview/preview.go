package preview

import (
	"github.com/vincent-petithory/dataurl"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/asset"
)

// Generate produces a displayable data URL for the normalized asset, or an
// empty handle when the mime type cannot be rendered inline. The encoding is
// lossless: decoding the data URL reproduces the exact input bytes.
func Generate(a asset.Normalized) asset.PreviewHandle {
	if len(a.Bytes) == 0 || !constants.IsPreviewable(a.MimeType) {
		return asset.PreviewHandle{}
	}
	return asset.PreviewHandle{DataURL: dataurl.New(a.Bytes, a.MimeType).String()}
}
