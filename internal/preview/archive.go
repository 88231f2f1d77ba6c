package preview

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"os"
	"strings"
)

// archiveEntry is one member of an archive's table of contents.
type archiveEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Dir  bool   `json:"dir"`
}

// NewZipTreeTransformer returns the "compressed" (tree) preview
// transformer for .zip files: it lists member names and sizes as JSON.
// Grounded on
// _examples/cs3org-reva/internal/http/services/archiver/manager/archiver.go,
// which builds (rather than reads) zip archives with the same stdlib
// package; no third-party zip-reading library appears anywhere in the
// corpus.
func NewZipTreeTransformer() Transformer {
	return TransformerFunc(func(path string) (Result, bool) {
		r, err := zip.OpenReader(path)
		if err != nil {
			return Result{}, false
		}
		defer r.Close()

		entries := make([]archiveEntry, 0, len(r.File))
		for _, f := range r.File {
			entries = append(entries, archiveEntry{
				Name: f.Name,
				Size: int64(f.UncompressedSize64),
				Dir:  f.FileInfo().IsDir(),
			})
		}
		body, err := json.Marshal(entries)
		if err != nil {
			return Result{}, false
		}
		return Result{PreviewType: TypeTree, Bytes: body}, true
	})
}

// NewTarTreeTransformer returns a "compressed" (tree) preview transformer
// for .tar and .tar.gz archives, reading member headers without
// extracting content. Same grounding as NewZipTreeTransformer.
func NewTarTreeTransformer() Transformer {
	return TransformerFunc(func(path string) (Result, bool) {
		f, err := os.Open(path)
		if err != nil {
			return Result{}, false
		}
		defer f.Close()

		var tr *tar.Reader
		if strings.HasSuffix(strings.ToLower(path), ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return Result{}, false
			}
			defer gz.Close()
			tr = tar.NewReader(gz)
		} else {
			tr = tar.NewReader(f)
		}

		var entries []archiveEntry
		for {
			hdr, err := tr.Next()
			if err != nil {
				break
			}
			entries = append(entries, archiveEntry{
				Name: hdr.Name,
				Size: hdr.Size,
				Dir:  hdr.Typeflag == tar.TypeDir,
			})
		}
		if entries == nil {
			return Result{}, false
		}
		body, err := json.Marshal(entries)
		if err != nil {
			return Result{}, false
		}
		return Result{PreviewType: TypeTree, Bytes: body}, true
	})
}
