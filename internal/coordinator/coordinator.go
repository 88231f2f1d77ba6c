// Package coordinator implements the coordinator process: it classifies
// each request by file extension, proxies single-target commands
// byte-for-byte to the owning backend, and fans out multi-target
// commands to every backend its filters select before merging the
// results (spec.md §2,
// §4.3, §4.4).
package coordinator

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"github.com/caseyfield/distfs/internal/classify"
	"github.com/caseyfield/distfs/internal/config"
	"github.com/caseyfield/distfs/internal/wire"
)

// Server is the coordinator: a static backend registry and the
// extension table used to route single-target commands. Grounded on the
// Daemon struct in
// _examples/GandalftheGUI-grove/internal/daemon/daemon.go, stripped of
// its instance map since the coordinator holds no server-side state of
// its own beyond the registry it loaded at startup.
type Server struct {
	registry *config.Registry
	table    *classify.Table
	log      zerolog.Logger
}

// New constructs a Server from a loaded backend registry and the
// extension table it routes single-target commands with.
func New(registry *config.Registry, table *classify.Table, logger zerolog.Logger) *Server {
	return &Server{registry: registry, table: table, log: logger}
}

// Run listens on addr and blocks, serving one goroutine per client
// connection, until the listener is closed.
func (s *Server) Run(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer l.Close()

	s.log.Info().Str("addr", addr).Msg("coordinator listening")
	return s.Serve(l)
}

// Serve accepts connections from l, one goroutine each, until it is
// closed. Run is Serve plus the net.Listen call; tests that need the
// ephemeral port a "127.0.0.1:0" listener picked use Serve directly.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return nil
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	for {
		var req wire.Request
		if err := wire.RecvControl(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		log.Debug().Str("command", req.Command).Str("path", req.Path).Msg("request")

		var err error
		switch req.Command {
		case wire.CmdPing:
			err = wire.SendControl(conn, wire.Response{Type: wire.TypePong})
		case wire.CmdList:
			err = s.handleList(conn, req)
		case wire.CmdSearch:
			err = s.handleSearch(conn, req)
		case wire.CmdUpload, wire.CmdDownload, wire.CmdPreview, wire.CmdDelete:
			err = s.handleSingleTarget(conn, req)
		default:
			err = wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrUnknownControlType)})
		}
		if err != nil {
			log.Warn().Err(err).Str("command", req.Command).Msg("request failed")
			return
		}
	}
}

// handleSingleTarget routes upload/download/preview/delete to the one
// backend that owns the request's path, classifying by extension
// (spec.md §4.3 I2). Delete and upload carry the file name in their
// payload rather than the path, so the extension comes from there.
func (s *Server) handleSingleTarget(conn net.Conn, req wire.Request) error {
	name := req.Path
	switch req.Command {
	case wire.CmdUpload:
		var p wire.UploadRequestPayload
		if err := json.Unmarshal(req.Payload, &p); err == nil {
			name = p.Name
		}
	case wire.CmdDelete:
		var p wire.DeletePayload
		if err := json.Unmarshal(req.Payload, &p); err == nil {
			name = p.Name
		}
	}

	class, ok := s.table.ClassifyPath(name)
	if !ok {
		// spec.md §4.3: an unrecognized extension is "File type not
		// supported" only for upload; download/preview/delete on an
		// unroutable name means the file can't exist, so file_not_found.
		token := wire.ErrFileNotFound
		if req.Command == wire.CmdUpload {
			token = wire.ErrFileTypeUnsupported
		}
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(token)})
	}
	addr, ok := s.registry.Addr(class)
	if !ok {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerOffline)})
	}

	return proxySingleTarget(conn, req, addr)
}

func (s *Server) handleList(conn net.Conn, req wire.Request) error {
	tree := fanoutList(s.registry, req.Path, req.Filters)
	body, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return wire.SendControl(conn, wire.Response{Type: wire.TypeList, Payload: body})
}

// handleSearch implements the supplemented "search" command
// (SPEC_FULL.md §5.1): it rejects an empty query, narrows filters to a
// single class when no filters were given and the query ends with a
// recognized extension (e.g. "foo.png" selects "image"), fans out a
// "list" across the selected classes, and returns every file whose name
// contains the query as a substring.
func (s *Server) handleSearch(conn net.Conn, req wire.Request) error {
	query := strings.ToLower(strings.TrimSpace(req.Query))
	if query == "" {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrQueryRequired)})
	}

	filters := req.Filters
	if len(filters) == 0 {
		if ext := classify.Extension("x." + query); ext != "" {
			if c, ok := s.table.ClassOf(ext); ok {
				filters = []string{string(c)}
			}
		}
	}
	if len(filters) == 0 {
		filters = []string{"all"}
	}

	tree := fanoutList(s.registry, "", filters)

	var matches []*wire.FileEntry
	collectMatches(tree, query, &matches)
	if matches == nil {
		matches = []*wire.FileEntry{}
	}

	result := &wire.DirectoryNode{
		Name:           "search_results",
		Path:           "search/",
		Subdirectories: []*wire.DirectoryNode{},
		Files:          matches,
	}
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return wire.SendControl(conn, wire.Response{Type: wire.TypeList, Payload: body})
}
