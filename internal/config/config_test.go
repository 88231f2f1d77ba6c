package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseyfield/distfs/internal/classify"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
image_server:       { host: 127.0.0.1, port: 9001 }
video_server:       { host: 127.0.0.1, port: 9002 }
text_server:        { host: 127.0.0.1, port: 9003 }
sound_server:       { host: 127.0.0.1, port: 9004 }
compressed_server:  { host: 127.0.0.1, port: 9005 }
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)

	addr, ok := reg.Addr(classify.Image)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:9001", addr.String())

	addr, ok = reg.Addr(classify.Compressed)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:9005", addr.String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestEachVisitsAllClassesInOrder(t *testing.T) {
	reg := &Registry{
		ImageServer:      ServerAddr{Host: "h", Port: 1},
		VideoServer:      ServerAddr{Host: "h", Port: 2},
		TextServer:       ServerAddr{Host: "h", Port: 3},
		SoundServer:      ServerAddr{Host: "h", Port: 4},
		CompressedServer: ServerAddr{Host: "h", Port: 5},
	}
	var seen []classify.Class
	reg.Each(func(c classify.Class, addr ServerAddr) {
		seen = append(seen, c)
	})
	assert.Equal(t, classify.All, seen)
}
