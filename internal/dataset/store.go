package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/harborml/harbor/internal/infrastructure/logging"
	"github.com/harborml/harbor/internal/infrastructure/monitoring"
	"github.com/harborml/harbor/internal/shared/errors"
	"github.com/harborml/harbor/internal/shared/id"
)

// Store persists dataset batches as immutable segment files laid out as
// {root}/{namespaceID}/{datasetID}/{segmentName}.
//
// Reads are a point-in-time glob-and-merge with no locking against concurrent
// writers: a write completing mid-read may or may not be observed. The
// delivered consistency model is "eventually all segments present", not
// snapshot isolation.
type Store struct {
	root    string
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewStore creates a segment store rooted at root, creating it if needed.
func NewStore(root string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create datasets root %s: %w", root, errors.ErrStorageUnavailable)
	}
	return &Store{root: root, logger: logger}, nil
}

// WithMetrics attaches a metrics collector.
func (s *Store) WithMetrics(m *monitoring.Metrics) *Store {
	s.metrics = m
	return s
}

// Write serializes records into a new segment file in the dataset's
// directory. The segment is written to a temp file and renamed into place so
// a concurrent read can never observe a partial segment.
//
// Segment names combine the millisecond write timestamp with a ULID, so
// concurrent writers to the same dataset at sub-millisecond intervals cannot
// collide, while lexical order still tracks creation order.
func (s *Store) Write(ctx context.Context, nsID id.NamespaceID, dsID id.DatasetID, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := s.datasetDir(nsID, dsID)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("dataset directory %s: %w", dir, errors.ErrStorageUnavailable)
	}

	// Records without an ID get one assigned at write time, so every stored
	// record is addressable.
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = id.Default().GenerateString()
		}
	}

	buf, err := encodeSegment(records)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}

	name := fmt.Sprintf("%013d_%s%s", time.Now().UnixMilli(), id.Default().GenerateString(), segmentSuffix)

	tmp, err := os.CreateTemp(dir, ".tmp-segment-*")
	if err != nil {
		return fmt.Errorf("create segment temp file: %w", errors.ErrStorageUnavailable)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write segment: %w", errors.ErrStorageUnavailable)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync segment: %w", errors.ErrStorageUnavailable)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close segment: %w", errors.ErrStorageUnavailable)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("publish segment: %w", errors.ErrStorageUnavailable)
	}

	if s.metrics != nil {
		s.metrics.RecordSegmentWrite(len(records), len(buf))
	}
	s.logger.Debug("segment written",
		zap.String("namespace_id", nsID.String()),
		zap.String("dataset_id", dsID.String()),
		zap.String("segment", name),
		zap.Int("records", len(records)),
		zap.Int("bytes", len(buf)),
	)
	return nil
}

// Read decodes every segment of the dataset and returns the concatenation in
// segment-creation order. A dataset with no segments yet yields an empty
// batch, not an error.
//
// A segment that fails to decode fails the whole read with ErrCorruptSegment.
// Skipping corrupt segments silently would return an inconsistent view; the
// caller is better served by a loud, deterministic failure.
func (s *Store) Read(ctx context.Context, nsID id.NamespaceID, dsID id.DatasetID) ([]Record, error) {
	dir := s.datasetDir(nsID, dsID)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("dataset directory %s: %w", dir, errors.ErrStorageUnavailable)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*"+segmentSuffix))
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", errors.ErrStorageUnavailable)
	}
	sort.Strings(paths)

	records := make([]Record, 0)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read segment %s: %w", filepath.Base(path), errors.ErrStorageUnavailable)
		}
		batch, err := decodeSegment(data)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %v: %w", filepath.Base(path), err, errors.ErrCorruptSegment)
		}
		records = append(records, batch...)
	}

	if s.metrics != nil {
		s.metrics.RecordSegmentRead(len(paths), len(records))
	}
	return records, nil
}

// CreateDirectory provisions the on-disk directory for a new dataset.
// Invoked alongside the metadata create.
func (s *Store) CreateDirectory(nsID id.NamespaceID, dsID id.DatasetID) error {
	if err := os.MkdirAll(s.datasetDir(nsID, dsID), 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", errors.ErrStorageUnavailable)
	}
	return nil
}

// RemoveDirectory deletes a dataset's directory and all of its segments.
// Invoked alongside the metadata delete.
func (s *Store) RemoveDirectory(nsID id.NamespaceID, dsID id.DatasetID) error {
	if err := os.RemoveAll(s.datasetDir(nsID, dsID)); err != nil {
		return fmt.Errorf("remove dataset directory: %w", errors.ErrStorageUnavailable)
	}
	return nil
}

// RemoveNamespaceDirectory deletes the whole on-disk tree of a namespace,
// covering every dataset it owned. Invoked alongside namespace deletion.
func (s *Store) RemoveNamespaceDirectory(nsID id.NamespaceID) error {
	if err := os.RemoveAll(filepath.Join(s.root, nsID.String())); err != nil {
		return fmt.Errorf("remove namespace directory: %w", errors.ErrStorageUnavailable)
	}
	return nil
}

func (s *Store) datasetDir(nsID id.NamespaceID, dsID id.DatasetID) string {
	return filepath.Join(s.root, nsID.String(), dsID.String())
}
