package coordinator

import (
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/caseyfield/distfs/internal/config"
	"github.com/caseyfield/distfs/internal/wire"
)

// dialTimeout bounds how long the coordinator waits to connect to a
// backend before reporting server_timeout (spec.md §7). It also bounds
// the wait for a backend's first response frame; a backend that does not
// answer in time is reported as server_no_response.
const dialTimeout = 5 * time.Second

// dialBackend connects to addr, translating connection failures into the
// wire's server_offline/server_timeout tokens.
func dialBackend(addr config.ServerAddr) (net.Conn, string, error) {
	conn, err := net.DialTimeout("tcp", addr.String(), dialTimeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, wire.ErrServerTimeout, err
		}
		return nil, wire.ErrServerOffline, err
	}
	return conn, "", nil
}

// proxySingleTarget forwards req to the backend at addr and relays every
// frame and raw byte stream back to the client byte-for-byte, parsing
// only what it needs to decide whether a raw body follows (spec.md §4.3
// design note: "forward the backend's raw frame bytes to the client
// before parsing them locally" guarantees wire-identical behavior).
func proxySingleTarget(client net.Conn, req wire.Request, addr config.ServerAddr) error {
	backend, errToken, err := dialBackend(addr)
	if err != nil {
		return wire.SendControl(client, wire.Response{Type: wire.TypeError, Payload: errPayload(errToken)})
	}
	defer backend.Close()

	if err := backend.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
		return wire.SendControl(client, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerError)})
	}

	if err := wire.SendControl(backend, req); err != nil {
		return wire.SendControl(client, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerOffline)})
	}

	// Upload is client->backend after the backend's "ready": forward the
	// ready/error frame, then if ready, stream the client's raw upload body
	// straight through before waiting for the final upload_result frame.
	if req.Command == wire.CmdUpload {
		return proxyUpload(client, backend, req)
	}

	// Download/preview: a single backend response frame, optionally
	// followed by a raw body the backend streams to the client.
	_, body, err := wire.RecvRawFrame(backend)
	if err != nil {
		return wire.SendControl(client, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerNoResponse)})
	}
	if err := wire.SendControl(client, json.RawMessage(body)); err != nil {
		return err
	}

	var resp wire.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	size, ok := bodySizeOf(req.Command, resp)
	if !ok {
		return nil
	}
	backend.SetDeadline(time.Time{})
	return wire.CopyN(client, backend, size)
}

func proxyUpload(client, backend net.Conn, req wire.Request) error {
	_, body, err := wire.RecvRawFrame(backend)
	if err != nil {
		return wire.SendControl(client, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerNoResponse)})
	}
	if err := wire.SendControl(client, json.RawMessage(body)); err != nil {
		return err
	}

	var resp wire.Response
	if err := json.Unmarshal(body, &resp); err != nil || resp.Type != wire.TypeReady {
		return nil
	}

	var payload wire.UploadRequestPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return nil
	}

	backend.SetDeadline(time.Time{})
	if err := wire.CopyN(backend, client, payload.Size); err != nil {
		return err
	}

	_, resultBody, err := wire.RecvRawFrame(backend)
	if err != nil {
		return wire.SendControl(client, wire.Response{Type: wire.TypeError, Payload: errPayload(wire.ErrServerNoResponse)})
	}
	return wire.SendControl(client, json.RawMessage(resultBody))
}

// bodySizeOf reports the raw-body length that follows resp for commands
// whose success response advertises one (spec.md §4.2).
func bodySizeOf(command string, resp wire.Response) (int64, bool) {
	switch {
	case command == wire.CmdDownload && resp.Type == wire.TypeReady:
		var p wire.ReadyDownloadPayload
		if err := json.Unmarshal(resp.Payload, &p); err != nil {
			return 0, false
		}
		return p.Size, true
	case command == wire.CmdPreview && resp.Type == wire.TypePreviewReady:
		var p wire.PreviewReadyPayload
		if err := json.Unmarshal(resp.Payload, &p); err != nil {
			return 0, false
		}
		return p.Size, true
	default:
		return 0, false
	}
}

// errPayload renders an error token as the bare JSON string spec.md
// §4.2/§7 require for an "error" response's payload (e.g.
// payload:"Invalid path"), not a wrapped object.
func errPayload(token string) json.RawMessage {
	b, _ := json.Marshal(token)
	return b
}
