package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/caseyfield/distfs/internal/classify"
	"github.com/caseyfield/distfs/internal/wire"
)

// handleConn serves one client connection sequentially: read a request,
// answer it, read the next. Grounded on the request/response loop in
// _examples/GandalftheGUI-grove/internal/daemon/daemon.go's handleConn,
// adapted from one-shot newline-JSON requests to the length-prefixed
// framing + optional raw-byte body this protocol uses (spec.md §6).
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log := s.log.With().Str("remote", remote).Logger()

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
			err = s.handlePing(conn)
		case wire.CmdList:
			err = s.handleList(conn, req)
		case wire.CmdUpload:
			err = s.handleUpload(conn, req)
		case wire.CmdDownload:
			err = s.handleDownload(conn, req)
		case wire.CmdPreview:
			err = s.handlePreview(conn, req)
		case wire.CmdDelete:
			err = s.handleDelete(conn, req)
		default:
			err = wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrUnknownControlType)})
		}
		if err != nil {
			log.Warn().Err(err).Str("command", req.Command).Msg("request failed")
			return
		}
	}
}

// errPayload renders an error token as the bare JSON string spec.md
// §4.2/§7 require for an "error" response's payload (e.g.
// payload:"sha_mismatch"), not a wrapped object.
func errPayload(token string) json.RawMessage {
	b, _ := json.Marshal(token)
	return b
}

func (s *Server) handlePing(conn net.Conn) error {
	payload, _ := json.Marshal(wire.PongPayload{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		StorageRoot:   s.root,
	})
	return wire.SendControl(conn, wire.Response{Type: wire.TypePong, Payload: payload})
}

func (s *Server) handleList(conn net.Conn, req wire.Request) error {
	abs, err := s.safeJoin(req.Path)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrInvalidPath)})
	}

	filters := req.Filters
	if len(filters) == 0 {
		filters = []string{"all"}
	}
	tree, err := s.buildTree(abs, filters)
	if err != nil {
		if os.IsNotExist(err) {
			return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrFileNotFound)})
		}
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	body, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return wire.SendControl(conn, wire.Response{Type: wire.TypeList, Payload: body})
}

// handleUpload implements spec.md's upload sequence: the client has
// already sent the "upload" control request; the backend answers
// "ready", streams the advertised number of bytes into a ".tmp" sibling
// while hashing it, and finally renames the file into place only if the
// digest matches (invariant I3, testable property 3 & 4).
func (s *Server) handleUpload(conn net.Conn, req wire.Request) error {
	var payload wire.UploadRequestPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	destRel := filepath.Join(req.Path, payload.Name)
	dest, err := s.safeJoin(destRel)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrInvalidPath)})
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	if err := wire.SendControl(conn, wire.Response{Type: wire.TypeReady}); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	hasher := sha256.New()
	writer := io.MultiWriter(f, hasher)
	if err := wire.CopyN(writer, conn, payload.Size); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if sum != payload.SHA256 {
		os.Remove(tmp)
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrShaMismatch)})
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	body, _ := json.Marshal(wire.UploadResultPayload{OK: true, SHA256: sum})
	return wire.SendControl(conn, wire.Response{Type: wire.TypeUploadResult, Payload: body})
}

func (s *Server) handleDownload(conn net.Conn, req wire.Request) error {
	abs, err := s.safeJoin(req.Path)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrInvalidPath)})
	}
	f, err := os.Open(abs)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrFileNotFound)})
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrFileNotFound)})
	}

	sum, err := sha256File(f)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	body, _ := json.Marshal(wire.ReadyDownloadPayload{Size: info.Size(), SHA256: sum})
	if err := wire.SendControl(conn, wire.Response{Type: wire.TypeReady, Payload: body}); err != nil {
		return err
	}

	return wire.CopyN(conn, f, info.Size())
}

func (s *Server) handlePreview(conn net.Conn, req wire.Request) error {
	abs, err := s.safeJoin(req.Path)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrInvalidPath)})
	}
	if _, err := os.Stat(abs); err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrFileNotFound)})
	}

	ext := classify.Extension(abs)
	transformer, ok := s.previews.Lookup(ext)
	if !ok {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrPreviewUnavailable)})
	}
	result, ok := transformer.Transform(abs)
	if !ok || len(result.Bytes) == 0 {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrPreviewUnavailable)})
	}

	body, _ := json.Marshal(wire.PreviewReadyPayload{Type: string(result.PreviewType), Size: int64(len(result.Bytes))})
	if err := wire.SendControl(conn, wire.Response{Type: wire.TypePreviewReady, Payload: body}); err != nil {
		return err
	}
	_, err = conn.Write(result.Bytes)
	return err
}

func (s *Server) handleDelete(conn net.Conn, req wire.Request) error {
	var payload wire.DeletePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	target := filepath.Join(req.Path, payload.Name)
	abs, err := s.safeJoin(target)
	if err != nil {
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrInvalidPath)})
	}

	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrFileNotFound)})
		}
		return wire.SendControl(conn, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	body, _ := json.Marshal(wire.DeleteResultPayload{OK: true})
	return wire.SendControl(conn, wire.Response{Type: wire.TypeDeleteResult, Payload: body})
}

func sha256File(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
