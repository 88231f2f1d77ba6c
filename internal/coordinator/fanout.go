package coordinator

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caseyfield/distfs/internal/classify"
	"github.com/caseyfield/distfs/internal/config"
	"github.com/caseyfield/distfs/internal/wire"
)

// maxFanoutConcurrency bounds how many backends the coordinator dials at
// once for a multi-target command, the same shape docker-compose's
// pull.go gives its image-pull fan-out.
const maxFanoutConcurrency = 5

// fetchTree issues a "list" request to addr and returns the
// DirectoryNode it answers with, or nil if the backend did not answer
// successfully (offline backends contribute zero results rather than
// failing the whole fan-out, per SPEC_FULL.md §5.1).
func fetchTree(addr config.ServerAddr, path string, filters []string) (*wire.DirectoryNode, string) {
	conn, errToken, err := dialBackend(addr)
	if err != nil {
		return nil, errToken
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(dialTimeout))

	req := wire.Request{Command: wire.CmdList, Path: path, Filters: filters}
	if err := wire.SendControl(conn, req); err != nil {
		return nil, wire.ErrServerOffline
	}

	var resp wire.Response
	if err := wire.RecvControl(conn, &resp); err != nil {
		return nil, wire.ErrServerNoResponse
	}
	if resp.Type != wire.TypeList {
		return nil, wire.ErrServerError
	}

	var tree wire.DirectoryNode
	if err := json.Unmarshal(resp.Payload, &tree); err != nil {
		return nil, wire.ErrServerError
	}
	return &tree, ""
}

// annotate stamps server_type/server onto every file in tree, so the
// coordinator's merged result tells a client which backend owns each
// entry (spec.md §4.4) without that annotation affecting merge dedup.
func annotate(tree *wire.DirectoryNode, serverType, server string) {
	if tree == nil {
		return
	}
	for _, f := range tree.Files {
		if serverType != "" {
			f.ServerType = serverType
		}
		f.Server = server
	}
	for _, sub := range tree.Subdirectories {
		annotate(sub, serverType, server)
	}
}

// fanoutList dispatches a "list" (or the tree-gathering half of "search")
// to every backend class selected by filters, in bounded concurrency via
// errgroup (spec.md §4.3 "multi-target commands fan out and merge";
// grounded on the errgroup.WithContext+SetLimit pattern in
// _examples/docker-compose/pkg/compose/pull.go). A backend that cannot be
// reached contributes nothing rather than failing the whole request.
func fanoutList(reg *config.Registry, path string, filters []string) *wire.DirectoryNode {
	classes := classesFor(filters)

	trees := make([]*wire.DirectoryNode, len(classes))
	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(maxFanoutConcurrency)

	for i, c := range classes {
		i, c := i, c
		eg.Go(func() error {
			addr, ok := reg.Addr(c)
			if !ok {
				return nil
			}
			tree, _ := fetchTree(addr, path, filters)
			if tree != nil {
				annotate(tree, string(c), addr.String())
				trees[i] = tree
			}
			return nil
		})
	}
	eg.Wait()

	name := path
	if name == "" {
		name = "/"
	}
	return mergeTrees(name, path, trees)
}

// classesFor narrows the full class list to the ones a "filters" token
// set could possibly match: "all" or a class name selects exactly that
// subset; a bare extension (e.g. "mp4") still must fan out to every class,
// since only the table (owned per-backend) can resolve it.
func classesFor(filters []string) []classify.Class {
	if len(filters) == 0 {
		return classify.All
	}
	selected := make(map[classify.Class]bool)
	wantsAll := false
	for _, f := range filters {
		switch classify.Class(f) {
		case classify.Image, classify.Video, classify.Text, classify.Sound, classify.Compressed:
			selected[classify.Class(f)] = true
		case "folder":
			// not a class filter
		case "all":
			wantsAll = true
		default:
			wantsAll = true // literal extension: let every backend's table decide
		}
	}
	if wantsAll || len(selected) == 0 {
		return classify.All
	}
	out := make([]classify.Class, 0, len(selected))
	for _, c := range classify.All {
		if selected[c] {
			out = append(out, c)
		}
	}
	return out
}
