package backend

import (
	"os"
	"path/filepath"

	"github.com/caseyfield/distfs/internal/wire"
)

// buildTree walks absRoot recursively and builds the DirectoryNode spec.md
// §4.2/§4.4 describes for "list": subdirectories are always included
// unless "folder" is in filters (suppressed at every depth); files are
// included only if their extension matches at least one filter token
// (spec.md I4).
func (s *Server) buildTree(absRoot string, filters []string) (*wire.DirectoryNode, error) {
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, os.ErrNotExist
	}

	relRoot, err := s.relativeToStorageParent(absRoot)
	if err != nil {
		return nil, err
	}

	root := &wire.DirectoryNode{
		Name:           filepath.Base(absRoot),
		Path:           relRoot,
		Subdirectories: []*wire.DirectoryNode{},
		Files:          []*wire.FileEntry{},
	}

	suppressFolders := containsToken(filters, "folder")

	// nodes maps an absolute directory path to the DirectoryNode files
	// found directly inside it should attach to. When "folder" suppresses
	// subdirectory nodes at every depth (spec.md §4.5), walking still
	// descends to find nested files, but every match flattens into root
	// instead of an intermediate node that is never created.
	nodes := map[string]*wire.DirectoryNode{absRoot: root}

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		if info.IsDir() {
			if suppressFolders {
				return nil // descend, but never materialize a node
			}
			parentNode := nodes[filepath.Dir(path)]
			relPath, err := s.relativeToStorageParent(path)
			if err != nil {
				return err
			}
			node := &wire.DirectoryNode{
				Name:           info.Name(),
				Path:           relPath,
				Subdirectories: []*wire.DirectoryNode{},
				Files:          []*wire.FileEntry{},
			}
			parentNode.Subdirectories = append(parentNode.Subdirectories, node)
			nodes[path] = node
			return nil
		}

		if !s.table.MatchesAnyFilter(path, filters) {
			return nil
		}
		relPath, err := s.relativeToStorageParent(path)
		if err != nil {
			return err
		}
		attachNode := root
		if !suppressFolders {
			attachNode = nodes[filepath.Dir(path)]
		}
		attachNode.Files = append(attachNode.Files, &wire.FileEntry{
			Name: info.Name(),
			Path: relPath,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
