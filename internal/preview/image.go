package preview

import (
	"bytes"
	"image/png"

	"github.com/disintegration/imaging"
)

// ImageThumbnailSize is the longest edge, in pixels, of a generated
// thumbnail (spec.md §4.7's "encoded PNG/JPEG thumbnail").
const ImageThumbnailSize = 256

// NewImageTransformer returns the default "image" preview transformer: it
// decodes the source image, fits it inside a square of
// ImageThumbnailSize pixels preserving aspect ratio, and re-encodes as
// PNG. Grounded on
// _examples/cs3org-reva/internal/http/services/thumbnails/manager/thumbnail.go,
// which generates thumbnails the same way with the same library.
func NewImageTransformer() Transformer {
	return TransformerFunc(func(path string) (Result, bool) {
		src, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return Result{}, false
		}
		thumb := imaging.Fit(src, ImageThumbnailSize, ImageThumbnailSize, imaging.Lanczos)

		var buf bytes.Buffer
		if err := png.Encode(&buf, thumb); err != nil {
			return Result{}, false
		}
		return Result{PreviewType: TypeImage, Bytes: buf.Bytes()}, true
	})
}
