// Package watcher implements the client-side ingestion agent: a directory
// monitor that parses dropped record files and uploads them to a dataset in
// batches.
//
// During normal operation a file is uploaded as soon as a file event shows it
// holding at least the configured minimum batch size; smaller files wait.
// Stopping the watcher flushes everything left over, threshold or not, and
// blocks until the background loop and every outstanding upload have
// finished. Files that cannot be interpreted are moved to a quarantine
// subdirectory instead of being retried forever.
package watcher
