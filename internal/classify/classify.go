// Package classify implements the extension-driven dispatch described in
// spec.md's design notes: a typed sum over {image, video, text, sound,
// compressed} with a single classification function, rather than
// scattered extension checks.
package classify

import "strings"

// Class is a content class name.
type Class string

const (
	Image      Class = "image"
	Video      Class = "video"
	Text       Class = "text"
	Sound      Class = "sound"
	Compressed Class = "compressed"
)

// All lists every known content class, in the canonical order used for
// "all" expansion and for the coordinator's startup registry (spec.md §3,
// §4.5).
var All = []Class{Image, Video, Text, Sound, Compressed}

// defaultExtensions is the canonical table from spec.md §4.5, lowercase
// and without the leading dot.
var defaultExtensions = map[Class][]string{
	Image:      {"jpg", "jpeg", "png", "bmp", "gif"},
	Video:      {"mp4", "mkv", "webm", "flv", "avi"},
	Text:       {"txt", "md", "doc", "docx", "pdf"},
	Sound:      {"mp3", "m4a", "m4p", "flac", "ogg"},
	Compressed: {"zip", "rar", "7z"},
}

// Table maps a file extension (lowercase, no dot) to its content class.
// A backend or the coordinator builds one Table at startup; SPEC_FULL.md
// §5.2 lets a backend extend it at startup via --extra-ext.
type Table struct {
	ext map[string]Class
}

// NewTable builds a Table seeded with the canonical defaults for every
// class in classes (pass classify.All for the coordinator's full table).
func NewTable(classes ...Class) *Table {
	t := &Table{ext: make(map[string]Class)}
	for _, c := range classes {
		for _, ext := range defaultExtensions[c] {
			t.ext[ext] = c
		}
	}
	return t
}

// Extend registers an additional extension->class mapping, overriding any
// existing entry for that extension.
func (t *Table) Extend(ext string, c Class) {
	t.ext[strings.ToLower(ext)] = c
}

// ClassOf returns the content class for a file extension (without the
// leading dot), and whether it was found.
func (t *Table) ClassOf(ext string) (Class, bool) {
	c, ok := t.ext[strings.ToLower(ext)]
	return c, ok
}

// Extension returns the last '.'-delimited token of a path's basename,
// lowercased, or "" if the basename has no extension. It matches spec.md
// §4.3/§4.5: the extension is the last token after the final '.', found
// on the basename so an extension-bearing directory in the path (e.g.
// "archive.d/readme.txt") never confuses classification.
func Extension(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// ClassifyPath returns the content class for a path by extension.
func (t *Table) ClassifyPath(path string) (Class, bool) {
	ext := Extension(path)
	if ext == "" {
		return "", false
	}
	return t.ClassOf(ext)
}

// MatchesFilter reports whether path's extension matches filter token f,
// per spec.md §4.5: f may be a class name, "all", or a literal extension.
func MatchesFilter(path string, f string) bool {
	f = strings.ToLower(f)
	if f == "all" {
		return true
	}
	ext := Extension(path)
	if ext == "" {
		return false
	}
	if exts, ok := defaultExtensions[Class(f)]; ok {
		for _, e := range exts {
			if e == ext {
				return true
			}
		}
		return false
	}
	return ext == f
}

// MatchesAnyFilter reports whether path's extension matches at least one
// token in filters (spec.md I4).
func MatchesAnyFilter(path string, filters []string) bool {
	for _, f := range filters {
		if f == "folder" {
			continue
		}
		if MatchesFilter(path, f) {
			return true
		}
	}
	return false
}

// MatchesFilter is Table's class-aware counterpart to the package-level
// MatchesFilter: a class-name token also matches any extension the table
// learned via Extend (SPEC_FULL.md §5.2's --extra-ext), not just the
// canonical defaults.
func (t *Table) MatchesFilter(path string, f string) bool {
	f = strings.ToLower(f)
	if f == "all" {
		return true
	}
	ext := Extension(path)
	if ext == "" {
		return false
	}
	if c, ok := t.ClassOf(ext); ok {
		return string(c) == f || ext == f
	}
	return MatchesFilter(path, f)
}

// MatchesAnyFilter is Table's class-aware counterpart to the package-level
// MatchesAnyFilter, used by a backend's listing/search so a class filter
// also picks up any --extra-ext extension folded into this table.
func (t *Table) MatchesAnyFilter(path string, filters []string) bool {
	for _, f := range filters {
		if f == "folder" {
			continue
		}
		if t.MatchesFilter(path, f) {
			return true
		}
	}
	return false
}
