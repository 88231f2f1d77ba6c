// Package backend implements a single typed content backend: the
// process that owns one classify.Class's files on disk and answers
// ping/list/upload/download/preview/delete requests from a coordinator
// (spec.md §2, §4.2).
package backend

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/caseyfield/distfs/internal/classify"
	"github.com/caseyfield/distfs/internal/preview"
)

// Server is one content backend: a storage root, the content class it
// owns, the extension table it classifies against, and the preview
// transformers it can run. Grounded on the Daemon struct in
// _examples/GandalftheGUI-grove/internal/daemon/daemon.go, adapted from
// an instance-supervising IPC daemon to a stateless file-serving one —
// there is no mutable shared map here, so no mutex is needed.
type Server struct {
	root      string
	class     classify.Class
	table     *classify.Table
	previews  *preview.Registry
	log       zerolog.Logger
	startedAt time.Time
}

// New constructs a Server rooted at storageRoot, serving class, using
// table to classify extensions and previews to generate previews.
func New(storageRoot string, class classify.Class, table *classify.Table, previews *preview.Registry, logger zerolog.Logger) (*Server, error) {
	if err := ensureStorageRoot(storageRoot); err != nil {
		return nil, fmt.Errorf("ensure storage root: %w", err)
	}
	return &Server{
		root:      storageRoot,
		class:     class,
		table:     table,
		previews:  previews,
		log:       logger.With().Str("class", string(class)).Logger(),
		startedAt: time.Now(),
	}, nil
}

// Run listens on addr and blocks, handling one goroutine per connection,
// until the listener is closed.
func (s *Server) Run(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer l.Close()

	s.log.Info().Str("addr", addr).Msg("backend listening")
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
