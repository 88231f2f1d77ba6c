// coordinator – the front door of the distributed file service.
//
// Usage:
//
//	coordinator [--config registry.yaml] [host] [port]
//
// The coordinator loads its static backend registry from a YAML file
// (config.Registry), classifies each request by file extension, and
// either proxies it to the one backend that owns it or fans it out
// across every backend its filters select and merges the results
// (spec.md §2, §6, §9).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/caseyfield/distfs/internal/classify"
	"github.com/caseyfield/distfs/internal/config"
	"github.com/caseyfield/distfs/internal/coordinator"
)

func main() {
	configPath := flag.String("config", "", "path to the backend registry YAML file")
	flag.Parse()

	host, port := "0.0.0.0", 9000
	if args := flag.Args(); len(args) > 0 {
		host = args[0]
		if len(args) > 1 {
			fmt.Sscanf(args[1], "%d", &port)
		}
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *configPath == "" {
		log.Fatal().Msg("--config is required")
	}

	registry, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	table := classify.NewTable(classify.All...)
	srv := coordinator.New(registry, table, log)
	addr := fmt.Sprintf("%s:%d", host, port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		os.Exit(0)
	}()

	if err := srv.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("coordinator run")
	}
}
