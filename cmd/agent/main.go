// Package main is the entry point for the harbor ingestion agent.
//
// The agent watches a directory for record files (.jsonl, .ndjson, .csv),
// parses them, and uploads them to a dataset in batches. Files reaching the
// minimum batch size upload immediately; everything left over is flushed
// when the agent stops.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harborml/harbor/internal/agent"
	"github.com/harborml/harbor/internal/infrastructure/config"
	"github.com/harborml/harbor/internal/infrastructure/logging"
	"github.com/harborml/harbor/internal/shared/id"
	"github.com/harborml/harbor/internal/watcher"
)

func main() {
	watchDir := flag.String("watch", "", "directory to watch (overrides HARBOR_WATCH_DIR)")
	serverURL := flag.String("server", "", "harbor server URL (overrides HARBOR_SERVER_URL)")
	namespace := flag.String("namespace", "", "target namespace ID (overrides HARBOR_NAMESPACE_ID)")
	datasetID := flag.String("dataset", "", "target dataset ID (overrides HARBOR_DATASET_ID)")
	minBatch := flag.Int("min-batch", 0, "minimum records per file before upload (overrides HARBOR_MIN_BATCH_UPLOAD_SIZE)")
	dev := flag.Bool("dev", false, "development mode (colored logs, debug level)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *watchDir != "" {
		cfg.Watcher.WatchDir = *watchDir
	}
	if *serverURL != "" {
		cfg.Watcher.ServerURL = *serverURL
	}
	if *namespace != "" {
		cfg.Watcher.NamespaceID = *namespace
	}
	if *datasetID != "" {
		cfg.Watcher.DatasetID = *datasetID
	}
	if *minBatch > 0 {
		cfg.Watcher.MinBatchUploadSize = *minBatch
	}

	if cfg.Watcher.NamespaceID == "" || cfg.Watcher.DatasetID == "" {
		log.Fatal("namespace and dataset IDs are required (flags or HARBOR_NAMESPACE_ID / HARBOR_DATASET_ID)")
	}

	if *dev {
		cfg.Logging.Development = true
	}
	logger := logging.NewFrom(cfg.Logging.Level, cfg.Logging.Development)
	defer logger.Sync()

	client := agent.NewClient(cfg.Watcher.ServerURL, cfg.Watcher.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := client.Health(ctx); err != nil {
		cancel()
		log.Fatalf("server unreachable at %s: %v", cfg.Watcher.ServerURL, err)
	}
	cancel()

	uploader := agent.NewDatasetUploader(
		client,
		id.NamespaceID(cfg.Watcher.NamespaceID),
		id.DatasetID(cfg.Watcher.DatasetID),
	)

	w := watcher.New(watcher.Config{
		WatchDir:           cfg.Watcher.WatchDir,
		MinBatchUploadSize: cfg.Watcher.MinBatchUploadSize,
	}, uploader, logger.Named("watcher"))

	if err := w.Start(cfg.Watcher.WatchDir); err != nil {
		log.Fatalf("failed to start watcher: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("received signal %v, flushing and stopping", sig)

	if err := w.Stop(); err != nil {
		log.Fatalf("stop: %v", err)
	}
}
