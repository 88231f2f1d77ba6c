package preview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHeadTransformerShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	result, ok := NewTextHeadTransformer().Transform(path)
	require.True(t, ok)
	assert.Equal(t, TypeText, result.PreviewType)
	assert.Equal(t, "hello world", string(result.Bytes))
}

func TestTextHeadTransformerTruncatesLongFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.txt")
	body := strings.Repeat("a", TextHeadBytes*2)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	result, ok := NewTextHeadTransformer().Transform(path)
	require.True(t, ok)
	assert.Len(t, result.Bytes, TextHeadBytes)
}

func TestTextHeadTransformerMissingFile(t *testing.T) {
	_, ok := NewTextHeadTransformer().Transform(filepath.Join(t.TempDir(), "missing.txt"))
	assert.False(t, ok)
}

func TestTextHeadTransformerEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, ok := NewTextHeadTransformer().Transform(path)
	assert.False(t, ok)
}
