// Package main is the entry point for the harbor server.
//
// Harbor is a message delivery and dataset ingestion service: topics fan
// published messages out to push subscriptions, and datasets accumulate
// record batches as immutable columnar segment files.
//
// Configuration comes from HARBOR_* environment variables; CLI flags
// override them.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harborml/harbor/internal/infrastructure/config"
	"github.com/harborml/harbor/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "server port (overrides HARBOR_PORT)")
	datasetsRoot := flag.String("datasets", "", "datasets root directory (overrides HARBOR_DATASETS_ROOT)")
	dev := flag.Bool("dev", false, "development mode (colored logs, debug level)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *datasetsRoot != "" {
		cfg.Storage.DatasetsRoot = *datasetsRoot
	}
	if *dev {
		cfg.Logging.Development = true
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down", sig)
	case err := <-errChan:
		log.Printf("server error: %v", err)
	}

	if err := srv.Close(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
