// Package monitoring provides Prometheus metrics for harbor.
//
// Collected metrics cover the HTTP surface (request counts, latency, sizes),
// the publish path (publish outcomes, per-subscription delivery attempts and
// latency), segment storage (segments and records written/read, encoded
// sizes), and the ingestion watcher (upload outcomes, quarantined files).
//
// Each Metrics instance registers on its own registry; the server exposes it
// via promhttp on /metrics.
package monitoring
