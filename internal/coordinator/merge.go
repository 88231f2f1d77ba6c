package coordinator

import (
	"sort"
	"strings"

	"github.com/caseyfield/distfs/internal/wire"
)

// mergeTrees combines the DirectoryNode trees several backends returned
// for the same logical path into one, per spec.md §4.4: files are
// deduped by path, subdirectories are merged recursively by equal path,
// and the server_type/server annotations a backend stamps onto a
// FileEntry never affect dedup. Results are sorted before returning so
// fan-out concurrency never makes the client-visible order nondeterministic
// (SPEC_FULL.md §11 testable property 10).
func mergeTrees(name, path string, trees []*wire.DirectoryNode) *wire.DirectoryNode {
	merged := &wire.DirectoryNode{
		Name:           name,
		Path:           path,
		Subdirectories: []*wire.DirectoryNode{},
		Files:          []*wire.FileEntry{},
	}

	filesByPath := make(map[string]*wire.FileEntry)
	childrenByPath := make(map[string][]*wire.DirectoryNode)
	var childOrder []string

	for _, t := range trees {
		if t == nil {
			continue
		}
		for _, f := range t.Files {
			if _, exists := filesByPath[f.Path]; !exists {
				filesByPath[f.Path] = f
			}
		}
		for _, sub := range t.Subdirectories {
			if _, seen := childrenByPath[sub.Path]; !seen {
				childOrder = append(childOrder, sub.Path)
			}
			childrenByPath[sub.Path] = append(childrenByPath[sub.Path], sub)
		}
	}

	for _, f := range filesByPath {
		merged.Files = append(merged.Files, f)
	}
	sort.Slice(merged.Files, func(i, j int) bool { return merged.Files[i].Path < merged.Files[j].Path })

	sort.Strings(childOrder)
	for _, p := range childOrder {
		group := childrenByPath[p]
		merged.Subdirectories = append(merged.Subdirectories, mergeTrees(group[0].Name, p, group))
	}

	return merged
}

// collectMatches walks tree and appends every file whose name contains
// query as a case-insensitive substring to matches (SPEC_FULL.md §5.1
// testable property 9). query is expected already lower-cased by the
// caller.
func collectMatches(tree *wire.DirectoryNode, query string, matches *[]*wire.FileEntry) {
	if tree == nil {
		return
	}
	for _, f := range tree.Files {
		if strings.Contains(strings.ToLower(f.Name), query) {
			*matches = append(*matches, f)
		}
	}
	for _, sub := range tree.Subdirectories {
		collectMatches(sub, query, matches)
	}
}
