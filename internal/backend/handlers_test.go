package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseyfield/distfs/internal/classify"
	"github.com/caseyfield/distfs/internal/preview"
	"github.com/caseyfield/distfs/internal/wire"
)

func newTestHandlerServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "storage")
	srv, err := New(root, classify.Text, classify.NewTable(classify.Text), preview.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)
	return srv, root
}

// pipeConn returns a pair of connected net.Conn; the first simulates the
// coordinator/client side, the second is handed to handleConn.
func pipeConn() (net.Conn, net.Conn) {
	return net.Pipe()
}

func TestHandlePing(t *testing.T) {
	srv, _ := newTestHandlerServer(t)
	client, server := pipeConn()
	go srv.handleConn(server)
	defer client.Close()

	require.NoError(t, wire.SendControl(client, wire.Request{Command: wire.CmdPing}))

	var resp wire.Response
	require.NoError(t, wire.RecvControl(client, &resp))
	assert.Equal(t, wire.TypePong, resp.Type)

	var payload wire.PongPayload
	require.NoError(t, json.Unmarshal(resp.Payload, &payload))
	assert.NotEmpty(t, payload.StorageRoot)
}

func TestHandleUploadDownloadRoundTrip(t *testing.T) {
	srv, _ := newTestHandlerServer(t)
	client, server := pipeConn()
	go srv.handleConn(server)
	defer client.Close()

	content := []byte("hello distfs")
	sum := sha256.Sum256(content)
	shaHex := hex.EncodeToString(sum[:])

	payload, _ := json.Marshal(wire.UploadRequestPayload{Name: "greeting.txt", Size: int64(len(content)), SHA256: shaHex})
	require.NoError(t, wire.SendControl(client, wire.Request{Command: wire.CmdUpload, Path: "", Payload: payload}))

	var ready wire.Response
	require.NoError(t, wire.RecvControl(client, &ready))
	require.Equal(t, wire.TypeReady, ready.Type)

	_, err := client.Write(content)
	require.NoError(t, err)

	var result wire.Response
	require.NoError(t, wire.RecvControl(client, &result))
	require.Equal(t, wire.TypeUploadResult, result.Type)
	var resultPayload wire.UploadResultPayload
	require.NoError(t, json.Unmarshal(result.Payload, &resultPayload))
	assert.True(t, resultPayload.OK)

	require.NoError(t, wire.SendControl(client, wire.Request{Command: wire.CmdDownload, Path: "greeting.txt"}))
	var downReady wire.Response
	require.NoError(t, wire.RecvControl(client, &downReady))
	require.Equal(t, wire.TypeReady, downReady.Type)
	var downPayload wire.ReadyDownloadPayload
	require.NoError(t, json.Unmarshal(downReady.Payload, &downPayload))
	assert.Equal(t, int64(len(content)), downPayload.Size)
	assert.Equal(t, shaHex, downPayload.SHA256)

	buf := make([]byte, downPayload.Size)
	_, err = ioReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, content, buf)
}

func TestHandleUploadRejectsChecksumMismatch(t *testing.T) {
	srv, root := newTestHandlerServer(t)
	client, server := pipeConn()
	go srv.handleConn(server)
	defer client.Close()

	content := []byte("payload")
	payload, _ := json.Marshal(wire.UploadRequestPayload{Name: "bad.txt", Size: int64(len(content)), SHA256: "0000000000000000000000000000000000000000000000000000000000000"})
	require.NoError(t, wire.SendControl(client, wire.Request{Command: wire.CmdUpload, Payload: payload}))

	var ready wire.Response
	require.NoError(t, wire.RecvControl(client, &ready))
	require.Equal(t, wire.TypeReady, ready.Type)

	_, err := client.Write(content)
	require.NoError(t, err)

	var result wire.Response
	require.NoError(t, wire.RecvControl(client, &result))
	assert.Equal(t, wire.TypeError, result.Type)
	var resultPayload string
	require.NoError(t, json.Unmarshal(result.Payload, &resultPayload))
	assert.Equal(t, wire.ErrShaMismatch, resultPayload)

	_, statErr := os.Stat(filepath.Join(root, "bad.txt"))
	assert.True(t, os.IsNotExist(statErr))
	_, tmpErr := os.Stat(filepath.Join(root, "bad.txt.tmp"))
	assert.True(t, os.IsNotExist(tmpErr))
}

func TestHandleListRejectsTraversal(t *testing.T) {
	srv, _ := newTestHandlerServer(t)
	client, server := pipeConn()
	go srv.handleConn(server)
	defer client.Close()

	require.NoError(t, wire.SendControl(client, wire.Request{Command: wire.CmdList, Path: "../../etc"}))
	var resp wire.Response
	require.NoError(t, wire.RecvControl(client, &resp))
	assert.Equal(t, wire.TypeError, resp.Type)
}

func TestHandleDeleteMissingFile(t *testing.T) {
	srv, _ := newTestHandlerServer(t)
	client, server := pipeConn()
	go srv.handleConn(server)
	defer client.Close()

	payload, _ := json.Marshal(wire.DeletePayload{Name: "nope.txt"})
	require.NoError(t, wire.SendControl(client, wire.Request{Command: wire.CmdDelete, Payload: payload}))
	var resp wire.Response
	require.NoError(t, wire.RecvControl(client, &resp))
	assert.Equal(t, wire.TypeError, resp.Type)
}

func ioReadFull(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
