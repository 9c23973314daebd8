// Package analysis talks to the remote task analysis service. It sends a
// task batch plus a strategy identifier and returns the ranked result set.
// How scores are computed is entirely up to the service.
//
// The package also provides Guard, which enforces that at most one analysis
// is in flight per trigger source, and Metrics, which records request
// outcomes for Prometheus.
package analysis
