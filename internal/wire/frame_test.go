package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecvControlRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Command: CmdList, Path: "storage", Filters: []string{"all"}}

	require.NoError(t, SendControl(&buf, req))

	var got Request
	require.NoError(t, RecvControl(&buf, &got))
	assert.Equal(t, req, got)
}

func TestRecvControlEOFAtFrameBoundary(t *testing.T) {
	var buf bytes.Buffer
	var got Request
	err := RecvControl(&buf, &got)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecvControlPartialHeaderIsProtocolError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01})
	var got Request
	err := RecvControl(buf, &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestRecvControlOversizeFrameRejected(t *testing.T) {
	hdr := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf := bytes.NewBuffer(hdr)
	var got Request
	err := RecvControl(buf, &got)
	require.Error(t, err)
}

func TestCopyNExactBytes(t *testing.T) {
	src := bytes.NewReader([]byte("hello world\n"))
	var dst bytes.Buffer
	require.NoError(t, CopyN(&dst, src, 12))
	assert.Equal(t, "hello world\n", dst.String())
}

func TestCopyNShortSourceErrors(t *testing.T) {
	src := bytes.NewReader([]byte("short"))
	var dst bytes.Buffer
	err := CopyN(&dst, src, 100)
	require.Error(t, err)
}

func TestSyncWriterSerializesWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewSyncWriter(&buf)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			w.Write([]byte("a"))
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		w.Write([]byte("b"))
	}
	<-done
	assert.Len(t, buf.String(), 200)
}
