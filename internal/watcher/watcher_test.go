package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborml/harbor/internal/dataset"
	"github.com/harborml/harbor/internal/infrastructure/logging"
)

type fakeUploader struct {
	mu      sync.Mutex
	batches [][]dataset.Record
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, records []dataset.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeUploader) uploaded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func (f *fakeUploader) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func jsonlContent(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += fmt.Sprintf(`{"id": "r%d", "text": "record %d"}`+"\n", i, i)
	}
	return out
}

func dropFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestWatcher(t *testing.T, minBatch int) (*Watcher, *fakeUploader, string) {
	t.Helper()
	dir := t.TempDir()
	up := &fakeUploader{}
	w := New(Config{WatchDir: dir, MinBatchUploadSize: minBatch}, up, logging.NewNop())
	return w, up, dir
}

func TestWatcherUploadsFileAtThreshold(t *testing.T) {
	w, up, dir := newTestWatcher(t, 3)
	require.NoError(t, w.Start(""))
	defer w.Stop()

	path := dropFile(t, dir, "batch.jsonl", jsonlContent(3))

	require.Eventually(t, func() bool {
		return up.uploaded() == 3
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 5*time.Second, 20*time.Millisecond, "uploaded file must be removed")
}

func TestWatcherHoldsFileBelowThreshold(t *testing.T) {
	w, up, dir := newTestWatcher(t, 64)
	require.NoError(t, w.Start(""))

	path := dropFile(t, dir, "small.jsonl", jsonlContent(10))

	// Give the event loop time to see and judge the file.
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, up.uploaded())
	_, err := os.Stat(path)
	assert.NoError(t, err, "below-threshold file must stay in place")

	require.NoError(t, w.Stop())
}

func TestWatcherStopFlushesResidualFiles(t *testing.T) {
	w, up, dir := newTestWatcher(t, 64)
	require.NoError(t, w.Start(""))

	dropFile(t, dir, "a.jsonl", jsonlContent(10))
	dropFile(t, dir, "b.jsonl", jsonlContent(5))
	time.Sleep(300 * time.Millisecond)

	require.NoError(t, w.Stop())
	assert.Equal(t, 15, up.uploaded(), "stop must flush regardless of the threshold")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatcherStopWithoutStartIsNoop(t *testing.T) {
	w, _, _ := newTestWatcher(t, 3)
	assert.NoError(t, w.Stop())
}

func TestWatcherRejectsDoubleStart(t *testing.T) {
	w, _, _ := newTestWatcher(t, 3)
	require.NoError(t, w.Start(""))
	defer w.Stop()

	assert.ErrorIs(t, w.Start(""), ErrAlreadyWatching)
}

func TestWatcherRestartsAfterStop(t *testing.T) {
	w, up, dir := newTestWatcher(t, 1)
	require.NoError(t, w.Start(""))
	require.NoError(t, w.Stop())

	require.NoError(t, w.Start(""))
	defer w.Stop()

	dropFile(t, dir, "again.jsonl", jsonlContent(2))
	require.Eventually(t, func() bool {
		return up.uploaded() == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherQuarantinesUnparsableFile(t *testing.T) {
	w, up, dir := newTestWatcher(t, 1)
	require.NoError(t, w.Start(""))
	defer w.Stop()

	dropFile(t, dir, "poison.jsonl", "this is not json\n")

	quarantined := filepath.Join(dir, quarantineDir, "poison.jsonl")
	require.Eventually(t, func() bool {
		_, err := os.Stat(quarantined)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Zero(t, up.uploaded())
}

func TestWatcherQuarantinesUnsupportedFileType(t *testing.T) {
	w, _, dir := newTestWatcher(t, 1)
	require.NoError(t, w.Start(""))
	defer w.Stop()

	dropFile(t, dir, "data.xml", "<records/>")

	quarantined := filepath.Join(dir, quarantineDir, "data.xml")
	require.Eventually(t, func() bool {
		_, err := os.Stat(quarantined)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherStopReportsUploadFailure(t *testing.T) {
	w, up, dir := newTestWatcher(t, 64)
	require.NoError(t, w.Start(""))

	path := dropFile(t, dir, "stuck.jsonl", jsonlContent(2))
	time.Sleep(300 * time.Millisecond)

	up.setErr(fmt.Errorf("dataset unreachable"))
	err := w.Stop()
	require.Error(t, err)

	// A failed flush leaves the data on disk.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestWatcherFailedUploadLeavesFileForRetry(t *testing.T) {
	w, up, dir := newTestWatcher(t, 1)
	up.setErr(fmt.Errorf("server down"))
	require.NoError(t, w.Start(""))

	path := dropFile(t, dir, "retry.jsonl", jsonlContent(2))
	time.Sleep(300 * time.Millisecond)

	_, err := os.Stat(path)
	assert.NoError(t, err)

	// Once the uploader recovers, the stop sweep delivers the file.
	up.setErr(nil)
	require.NoError(t, w.Stop())
	assert.Equal(t, 2, up.uploaded())
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	w, up, dir := newTestWatcher(t, 1)
	require.NoError(t, w.Start(""))

	dropFile(t, dir, ".hidden.jsonl", jsonlContent(3))
	time.Sleep(300 * time.Millisecond)

	require.NoError(t, w.Stop())
	assert.Zero(t, up.uploaded())
}
