package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harborml/harbor/internal/dataset"
	"github.com/harborml/harbor/internal/infrastructure/logging"
	"github.com/harborml/harbor/internal/infrastructure/monitoring"
	"github.com/harborml/harbor/internal/shared/errors"
)

// ErrAlreadyWatching is returned by Start when the watcher is already in the
// Watching state. Start/Stop are the only synchronization points exposed to
// callers, so re-entrancy is rejected deterministically instead of silently
// spawning a second loop.
var ErrAlreadyWatching = fmt.Errorf("watcher already started")

// quarantineDir is where unparsable or unsupported files are moved so they
// cannot wedge the watch loop. Dot-prefixed, so the sweep skips it.
const quarantineDir = ".quarantine"

// defaultWorkers bounds concurrent uploads within a watch cycle and within
// the stop sweep.
const defaultWorkers = 5

// Uploader ships one parsed record batch to its dataset.
type Uploader interface {
	Upload(ctx context.Context, records []dataset.Record) error
}

// Config configures a Watcher.
type Config struct {
	// WatchDir is the flat directory monitored for record files.
	WatchDir string
	// MinBatchUploadSize is the record count a single file must reach to be
	// uploaded during normal watching. It is a batching optimization, not a
	// correctness gate: Stop flushes residual files regardless.
	MinBatchUploadSize int
	// Workers bounds the upload pool. Defaults to 5.
	Workers int
}

// Watcher monitors a directory for record files and uploads them in batches.
//
// State machine: Stopped -> Watching -> Stopped. Batching is evaluated per
// file: each file event is parsed and judged against the threshold on its
// own, never combined with other files. Files are deleted only after a
// successful upload; a failed upload leaves the file in place for a later
// event or the stop sweep.
type Watcher struct {
	cfg      Config
	uploader Uploader
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu   sync.Mutex
	fsw  *fsnotify.Watcher
	done chan struct{}
	pool *errgroup.Group

	// inflight guards against duplicate events for the same path racing
	// through parse/upload/delete concurrently.
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// New creates a watcher in the Stopped state.
func New(cfg Config, uploader Uploader, logger *logging.Logger) *Watcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Watcher{
		cfg:      cfg,
		uploader: uploader,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// WithMetrics attaches a metrics collector.
func (w *Watcher) WithMetrics(m *monitoring.Metrics) *Watcher {
	w.metrics = m
	return w
}

// Start begins monitoring watchDir (or the configured directory when empty)
// on a dedicated background goroutine. Returns ErrAlreadyWatching when
// called in the Watching state.
func (w *Watcher) Start(watchDir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return ErrAlreadyWatching
	}

	if watchDir == "" {
		watchDir = w.cfg.WatchDir
	}
	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsw.Add(watchDir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", watchDir, err)
	}

	pool := new(errgroup.Group)
	pool.SetLimit(w.cfg.Workers)

	w.cfg.WatchDir = watchDir
	w.fsw = fsw
	w.pool = pool
	w.done = make(chan struct{})

	go w.loop(fsw, pool)

	w.logger.Info("watcher started",
		zap.String("watch_dir", watchDir),
		zap.Int("min_batch_upload_size", w.cfg.MinBatchUploadSize),
		zap.Int("workers", w.cfg.Workers),
	)
	return nil
}

// loop drains filesystem events until the watcher is closed, dispatching
// each candidate file to the bounded upload pool.
func (w *Watcher) loop(fsw *fsnotify.Watcher, pool *errgroup.Group) {
	defer close(w.done)

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			path := ev.Name
			if !w.candidate(path) {
				continue
			}
			pool.Go(func() error {
				if err := w.processFile(path, false); err != nil {
					w.logger.Warn("file processing failed",
						zap.String("file", filepath.Base(path)),
						zap.Error(err),
					)
				}
				// Errors are logged, not returned: one bad file must not
				// poison the pool for subsequent events.
				return nil
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// Stop transitions to Stopped: it joins the background loop, waits for every
// dispatched upload, then synchronously sweeps the directory, uploading all
// residual files regardless of the batch threshold.
//
// A residual file that fails to upload is left in place and its error is
// returned; Stop never deletes data that did not reach the dataset.
// Quarantined files are not an error at this level. Stopping a stopped
// watcher is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw == nil {
		return nil
	}

	w.fsw.Close()
	<-w.done
	// Uploads dispatched during watching never surface errors through the
	// pool; Wait is purely a join.
	_ = w.pool.Wait()

	w.fsw = nil
	w.pool = nil
	w.done = nil

	err := w.sweep()

	w.logger.Info("watcher stopped", zap.String("watch_dir", w.cfg.WatchDir))
	return err
}

// sweep force-processes every remaining candidate file in the watch
// directory on a fresh bounded pool and waits for all of them.
func (w *Watcher) sweep() error {
	entries, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		return fmt.Errorf("sweep %s: %w", w.cfg.WatchDir, err)
	}

	pool := new(errgroup.Group)
	pool.SetLimit(w.cfg.Workers)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.WatchDir, entry.Name())
		if !w.candidate(path) {
			continue
		}
		pool.Go(func() error {
			err := w.processFile(path, true)
			if err == nil {
				return nil
			}
			// Unparsable and unsupported files were quarantined; the sweep
			// still counts as clean. Upload failures are real losses and
			// surface to the caller.
			if isQuarantineable(err) {
				return nil
			}
			return err
		})
	}

	return pool.Wait()
}

// candidate filters out directories, hidden files and our own temp entries.
func (w *Watcher) candidate(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return true
}

// processFile parses one file and applies the batching policy. When force is
// set (stop sweep) the threshold is ignored. On successful upload the file
// is removed; on upload failure it stays put and the error propagates. Files
// that cannot be interpreted are moved to the quarantine directory so they
// stop generating work.
func (w *Watcher) processFile(path string, force bool) error {
	if !w.claim(path) {
		return nil
	}
	defer w.release(path)

	records, err := ParseFile(path)
	if err != nil {
		if isQuarantineable(err) {
			w.quarantine(path)
		}
		return err
	}

	if !force && len(records) < w.cfg.MinBatchUploadSize {
		// Below threshold: leave the file alone. It gets re-evaluated on its
		// next event, or flushed by the stop sweep.
		return nil
	}
	if len(records) == 0 {
		// Nothing to upload; an empty residual file is just deleted.
		return os.Remove(path)
	}

	if err := w.uploader.Upload(context.Background(), records); err != nil {
		if w.metrics != nil {
			w.metrics.RecordWatcherUpload("error")
		}
		return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}

	if w.metrics != nil {
		w.metrics.RecordWatcherUpload("ok")
	}
	w.logger.Debug("batch uploaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("records", len(records)),
	)
	return os.Remove(path)
}

func (w *Watcher) quarantine(path string) {
	dir := filepath.Join(w.cfg.WatchDir, quarantineDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.logger.Warn("quarantine dir unavailable", zap.Error(err))
		return
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		w.logger.Warn("quarantine failed",
			zap.String("file", filepath.Base(path)),
			zap.Error(err),
		)
		return
	}
	if w.metrics != nil {
		w.metrics.WatcherQuarantined.Inc()
	}
	w.logger.Warn("file quarantined", zap.String("file", filepath.Base(path)))
}

func (w *Watcher) claim(path string) bool {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	if _, busy := w.inflight[path]; busy {
		return false
	}
	w.inflight[path] = struct{}{}
	return true
}

func (w *Watcher) release(path string) {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	delete(w.inflight, path)
}

func isQuarantineable(err error) bool {
	return errors.Is(err, errors.ErrUnsupportedFileType) || errors.Is(err, errors.ErrParse)
}
