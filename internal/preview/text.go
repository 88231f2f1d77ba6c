package preview

import (
	"io"
	"os"
)

// TextHeadBytes is how many bytes of a text/document file are returned
// as its preview (spec.md §4.7's "UTF-8 head-of-file, bounded length").
const TextHeadBytes = 4096

// NewTextHeadTransformer returns the default "text" preview transformer:
// it reads up to TextHeadBytes from the start of the file. This needs no
// third-party library — reading a bounded byte prefix is exactly what
// os.File + io.ReadFull already do; see DESIGN.md for why this one stays
// on stdlib.
func NewTextHeadTransformer() Transformer {
	return TransformerFunc(func(path string) (Result, bool) {
		f, err := os.Open(path)
		if err != nil {
			return Result{}, false
		}
		defer f.Close()

		buf := make([]byte, TextHeadBytes)
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return Result{}, false
		}
		if n == 0 {
			return Result{}, false
		}
		return Result{PreviewType: TypeText, Bytes: buf[:n]}, true
	})
}
