// backend – a single typed content backend process.
//
// Usage:
//
//	backend --class text --storage-root /var/lib/distfs/text [--extra-ext ext=class]... [host] [port]
//
// A backend owns one classify.Class's files on disk and answers
// ping/list/upload/download/preview/delete requests from a coordinator.
// It is normally started once per content class, behind the coordinator's
// config.Registry (spec.md §2, §6, §9).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/caseyfield/distfs/internal/backend"
	"github.com/caseyfield/distfs/internal/classify"
	"github.com/caseyfield/distfs/internal/preview"
)

// extraExtFlag is a repeatable "ext=class" flag (SPEC_FULL.md §5.2),
// following the teacher's stringSlice-flag pattern for repeatable CLI
// arguments (cmd/catherdd/main.go's --projects-dir).
type extraExtFlag []string

func (f *extraExtFlag) String() string { return strings.Join(*f, ",") }
func (f *extraExtFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	classFlag := flag.String("class", "", "content class this backend serves: image, video, text, sound, compressed")
	storageRoot := flag.String("storage-root", "", "directory this backend stores files under")
	var extraExts extraExtFlag
	flag.Var(&extraExts, "extra-ext", "additional ext=class mapping to fold into this backend's table (may be repeated)")
	flag.Parse()

	host, port := "0.0.0.0", 9100
	if args := flag.Args(); len(args) > 0 {
		host = args[0]
		if len(args) > 1 {
			fmt.Sscanf(args[1], "%d", &port)
		}
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	class := classify.Class(*classFlag)
	if !validClass(class) {
		log.Fatal().Str("class", *classFlag).Msg("unknown --class")
	}
	if *storageRoot == "" {
		log.Fatal().Msg("--storage-root is required")
	}

	table := classify.NewTable(class)
	for _, spec := range extraExts {
		ext, c, ok := parseExtraExt(spec)
		if !ok {
			log.Fatal().Str("extra-ext", spec).Msg("expected ext=class")
		}
		table.Extend(ext, c)
	}

	registry := preview.NewRegistry()
	registerDefaultTransformers(registry, class)

	srv, err := backend.New(*storageRoot, class, table, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend init")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%d", host, port)
	if err := srv.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("backend run")
	}
}

func validClass(c classify.Class) bool {
	for _, known := range classify.All {
		if c == known {
			return true
		}
	}
	return false
}

func parseExtraExt(spec string) (ext string, class classify.Class, ok bool) {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], classify.Class(parts[1]), true
}

// registerDefaultTransformers wires the default PreviewTransformers each
// content class gets out of the box (SPEC_FULL.md §7): images get the
// imaging-based thumbnailer, text/document extensions get the bounded
// head-of-file reader, and compressed archives get the zip/tar listing.
// Video and audio deliberately register nothing — spec.md §4.7 and §1
// leave concrete codec work as an external collaborator, and no codec
// library exists anywhere in the corpus.
func registerDefaultTransformers(reg *preview.Registry, class classify.Class) {
	switch class {
	case classify.Image:
		reg.RegisterAll([]string{"jpg", "jpeg", "png", "bmp", "gif"}, preview.NewImageTransformer())
	case classify.Text:
		reg.RegisterAll([]string{"txt", "md", "doc", "docx", "pdf"}, preview.NewTextHeadTransformer())
	case classify.Compressed:
		reg.RegisterAll([]string{"zip"}, preview.NewZipTreeTransformer())
		reg.RegisterAll([]string{"tar"}, preview.NewTarTreeTransformer())
	}
}
