// coldtel converts OTLP payload files into partitioned parquet files.
// Each argument is one export request (protobuf, JSON, or NDJSON); the
// partition layout under the output directory matches what the server
// pipeline produces.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/xtxerr/coldtel/config"
	"github.com/xtxerr/coldtel/ingest"
	"github.com/xtxerr/coldtel/internal/logging"
	"github.com/xtxerr/coldtel/otlp"
	"github.com/xtxerr/coldtel/writer"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	signalName := flag.String("signal", "logs", "payload signal: logs, traces, metrics")
	contentType := flag.String("content-type", "application/x-protobuf", "payload content type")
	outDir := flag.String("out", "", "output directory (overrides config)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("coldtel", Version)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.Writer.Dir = *outDir
	}
	// One-shot invocations keep no state between payloads: every file is
	// its own flush.
	cfg.Batching.Enabled = false

	logging.Init(cfg.Logging.SlogLevel(), cfg.Logging.JSON)
	log := logging.Component("coldtel")

	sig, ok := otlp.ParseSignal(*signalName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown signal %q (want logs, traces, or metrics)\n", *signalName)
		os.Exit(1)
	}
	enc := otlp.EncodingFromContentType(*contentType)

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: coldtel [flags] file...")
		os.Exit(2)
	}

	port := writer.NewParquet(writer.Options{
		Root:        cfg.Writer.Dir,
		Compression: writer.ParseCompressionType(cfg.Writer.Compression),
	})
	pipe := ingest.New(cfg, port)
	if err := pipe.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start pipeline: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	exit := 0
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("read payload", "file", path, "error", err)
			exit = 1
			continue
		}
		env := otlp.Envelope{Bytes: data, Encoding: enc, Signal: sig}
		if err := pipe.Ingest(ctx, env); err != nil {
			log.Error("convert payload", "file", path, "error", err)
			exit = 1
			continue
		}
		log.Info("converted", "file", path, "signal", sig)
	}

	if err := pipe.Stop(); err != nil {
		log.Error("drain pipeline", "error", err)
		exit = 1
	}

	stats := pipe.Stats()
	log.Info("done",
		"decoded", stats.PayloadsDecoded.Load(),
		"rejected", stats.PayloadsRejected.Load(),
		"rows", stats.RowsMapped.Load(),
		"write_failures", stats.WriteFailures.Load())

	os.Exit(exit)
}
