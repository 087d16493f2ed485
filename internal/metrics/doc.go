// Package metrics exposes Prometheus collectors for the panel: HTTP
// traffic, two-factor verifications, audit writes, retention runs and the
// Postgres pool.
package metrics
