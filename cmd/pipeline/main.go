// Command pipeline runs one telemetry pipeline from a YAML config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ssw-logs-capture/internal/config"
	"ssw-logs-capture/internal/host"
)

func main() {
	var configPath string
	var checkpointPath string
	flag.StringVar(&configPath, "config", "", "Path to pipeline configuration file")
	flag.StringVar(&checkpointPath, "checkpoint", "pipeline.positions.json", "Path to the file-position checkpoint")
	flag.Parse()

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "pipeline: -config is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: configuration rejected: %v\n", err)
		os.Exit(1)
	}

	h, err := host.New(cfg, checkpointPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: configuration rejected: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := h.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
}
