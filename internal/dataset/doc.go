// Package dataset implements append-only segment storage for dataset records.
//
// Each write produces one immutable, timestamp-plus-ULID-named segment file
// in the dataset's directory; reads glob every segment and return the merged
// batch in creation order. The segment body is a compact columnar format
// (ids, embeddings and free-form document payloads stored as separate
// zstd-compressed columns, xxhash-checksummed) rather than raw JSON, trading
// a small encode cost for cheap storage and fast scan-merge on read.
package dataset
