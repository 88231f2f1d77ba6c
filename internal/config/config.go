// Package config loads the coordinator's startup configuration: the
// static backend registry mapping each content class to a (host, port)
// pair (spec.md §6).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/caseyfield/distfs/internal/classify"
)

// ServerAddr is one backend's network address.
type ServerAddr struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// String renders "host:port" for dialing and for the "server" annotation
// on merged file entries (spec.md §4.4).
func (a ServerAddr) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Registry is the coordinator's static backend-class -> address mapping,
// loaded once at startup (spec.md §3 BackendRegistry, §6).
type Registry struct {
	ImageServer      ServerAddr `yaml:"image_server"`
	VideoServer      ServerAddr `yaml:"video_server"`
	TextServer       ServerAddr `yaml:"text_server"`
	SoundServer      ServerAddr `yaml:"sound_server"`
	CompressedServer ServerAddr `yaml:"compressed_server"`
}

// Load reads and parses the YAML registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &reg, nil
}

// Addr returns the backend address registered for class c.
func (r *Registry) Addr(c classify.Class) (ServerAddr, bool) {
	switch c {
	case classify.Image:
		return r.ImageServer, true
	case classify.Video:
		return r.VideoServer, true
	case classify.Text:
		return r.TextServer, true
	case classify.Sound:
		return r.SoundServer, true
	case classify.Compressed:
		return r.CompressedServer, true
	default:
		return ServerAddr{}, false
	}
}

// Each calls fn for every registered (class, address) pair in the
// canonical order from classify.All.
func (r *Registry) Each(fn func(classify.Class, ServerAddr)) {
	for _, c := range classify.All {
		addr, _ := r.Addr(c)
		fn(c, addr)
	}
}
