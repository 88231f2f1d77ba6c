// Package preview implements the PreviewTransformer interface and
// registry described in spec.md §4.7: an extension-keyed, pluggable
// component that turns an on-disk file into a small typed preview
// payload. Concrete codec work (image resizing, PDF rasterization,
// video/audio snippet generation) is an external collaborator per
// spec.md §1; this package fixes only the interface, the registry, and
// the handful of default transformers grounded on libraries present in
// the corpus (see SPEC_FULL.md §7).
package preview

import "strings"

// Type is the declared kind of a preview payload (spec.md §4.7).
type Type string

const (
	TypeImage Type = "image"
	TypeText  Type = "text"
	TypeAudio Type = "audio"
	TypeVideo Type = "video"
	TypeTree  Type = "tree"
)

// Result is the output of a successful transform.
type Result struct {
	PreviewType Type
	Bytes       []byte
}

// Transformer produces a Result from an on-disk path, or reports that no
// preview could be produced (spec.md §4.2: "no transformer or transformer
// returns empty" both map to preview_unavailable).
type Transformer interface {
	Transform(path string) (Result, bool)
}

// TransformerFunc adapts a plain function to Transformer.
type TransformerFunc func(path string) (Result, bool)

func (f TransformerFunc) Transform(path string) (Result, bool) {
	return f(path)
}

// Registry maps a file extension (lowercase, no dot) to the Transformer
// responsible for it. A backend builds one Registry at startup with the
// default transformers for the extensions its content class owns; zero
// or one transformer exists per extension (spec.md §4.7).
type Registry struct {
	byExt map[string]Transformer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Transformer)}
}

// Register binds ext (without the leading dot, case-insensitive) to t.
func (r *Registry) Register(ext string, t Transformer) {
	r.byExt[strings.ToLower(ext)] = t
}

// RegisterAll binds every extension in exts to the same Transformer.
func (r *Registry) RegisterAll(exts []string, t Transformer) {
	for _, e := range exts {
		r.Register(e, t)
	}
}

// Lookup returns the Transformer registered for ext, if any.
func (r *Registry) Lookup(ext string) (Transformer, bool) {
	t, ok := r.byExt[strings.ToLower(ext)]
	return t, ok
}
