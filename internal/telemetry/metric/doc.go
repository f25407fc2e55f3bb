// Package metric provides Prometheus metrics for SnapMesh.
//
//   - prometheus.go: the Registry with transport, snapshot and reconcile
//     metrics plus the /metrics HTTP handler
//   - collector.go: a scrape-time collector for session gauges
//
// All Registry methods are safe to call on a nil *Registry, so components
// can be built without metrics in tests.
package metric
