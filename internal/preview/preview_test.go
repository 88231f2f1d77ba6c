package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("TXT", TransformerFunc(func(path string) (Result, bool) {
		called = true
		return Result{PreviewType: TypeText, Bytes: []byte("x")}, true
	}))

	tr, ok := r.Lookup("txt")
	assert.True(t, ok)
	_, ok = tr.Transform("whatever")
	assert.True(t, ok)
	assert.True(t, called)
}

func TestRegistryLookupMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("zzz")
	assert.False(t, ok)
}

func TestRegistryRegisterAll(t *testing.T) {
	r := NewRegistry()
	tr := TransformerFunc(func(path string) (Result, bool) { return Result{}, true })
	r.RegisterAll([]string{"jpg", "jpeg", "png"}, tr)

	for _, ext := range []string{"jpg", "jpeg", "png", "JPG"} {
		_, ok := r.Lookup(ext)
		assert.True(t, ok, ext)
	}
	_, ok := r.Lookup("gif")
	assert.False(t, ok)
}
