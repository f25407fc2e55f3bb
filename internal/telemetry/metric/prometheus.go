package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snapmesh"

// Drop reasons used as the "reason" label.
const (
	ReasonShort     = "short"
	ReasonChecksum  = "checksum"
	ReasonVersion   = "version"
	ReasonQueueFull = "queue_full"
	ReasonUnknown   = "unknown_type"
	ReasonMalformed = "malformed"
	ReasonGeometry  = "geometry"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Transport
	FramesSent     prometheus.Counter
	FramesReceived prometheus.Counter
	FramesDropped  *prometheus.CounterVec
	BytesSent      prometheus.Counter
	BytesReceived  prometheus.Counter
	SendErrors     prometheus.Counter

	// Snapshots
	SnapshotsSent     prometheus.Counter
	SnapshotsApplied  prometheus.Counter
	SnapshotsRejected *prometheus.CounterVec
	SnapshotBytes     prometheus.Histogram
	EntitiesTruncated prometheus.Counter

	// Reconcile
	EntitiesSpawned    prometheus.Counter
	EntitiesRemoved    prometheus.Counter
	SmoothingScheduled prometheus.Counter
	PositionSnaps      prometheus.Counter
	ReconcileDuration  prometheus.Histogram
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus every SnapMesh metric.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,

		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport",
			Name: "frames_sent_total", Help: "Frames written to the socket",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport",
			Name: "frames_received_total", Help: "Frames that passed integrity checks",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport",
			Name: "frames_dropped_total", Help: "Datagrams discarded before reaching the session",
		}, []string{"reason"}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport",
			Name: "sent_bytes_total", Help: "Bytes written to the socket",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport",
			Name: "received_bytes_total", Help: "Bytes read from the socket",
		}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport",
			Name: "send_errors_total", Help: "Sends that failed at the socket",
		}),

		SnapshotsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "snapshot",
			Name: "sent_total", Help: "Snapshots sent by the host, counted per peer",
		}),
		SnapshotsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "snapshot",
			Name: "applied_total", Help: "Snapshots applied by the client",
		}),
		SnapshotsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "snapshot",
			Name: "rejected_total", Help: "Snapshots discarded by the client",
		}, []string{"reason"}),
		SnapshotBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "snapshot",
			Name: "size_bytes", Help: "Encoded snapshot payload size",
			Buckets: prometheus.ExponentialBuckets(256, 2, 10),
		}),
		EntitiesTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "snapshot",
			Name: "entities_truncated_total", Help: "Entities left out of snapshots that would not fit in one datagram",
		}),

		EntitiesSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reconcile",
			Name: "entities_spawned_total", Help: "Entities created on the client",
		}),
		EntitiesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reconcile",
			Name: "entities_removed_total", Help: "Entities removed on the client",
		}),
		SmoothingScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reconcile",
			Name: "smoothing_scheduled_total", Help: "Position corrections interpolated",
		}),
		PositionSnaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reconcile",
			Name: "position_snaps_total", Help: "Position corrections applied immediately",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "reconcile",
			Name: "duration_seconds", Help: "Time spent applying one snapshot",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
	}

	reg.MustRegister(
		r.FramesSent, r.FramesReceived, r.FramesDropped,
		r.BytesSent, r.BytesReceived, r.SendErrors,
		r.SnapshotsSent, r.SnapshotsApplied, r.SnapshotsRejected, r.SnapshotBytes,
		r.EntitiesTruncated,
		r.EntitiesSpawned, r.EntitiesRemoved, r.SmoothingScheduled, r.PositionSnaps,
		r.ReconcileDuration,
	)
	return r
}

// Registerer exposes the underlying registry so other components
// (storage, collectors) can add their own metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordSent counts one frame of n bytes written to the socket.
func (r *Registry) RecordSent(n int) {
	if r == nil {
		return
	}
	r.FramesSent.Inc()
	r.BytesSent.Add(float64(n))
}

// RecordReceived counts n raw bytes read from the socket.
func (r *Registry) RecordReceived(n int) {
	if r == nil {
		return
	}
	r.BytesReceived.Add(float64(n))
}

// RecordFrame counts one frame that passed integrity checks.
func (r *Registry) RecordFrame() {
	if r == nil {
		return
	}
	r.FramesReceived.Inc()
}

// RecordDrop counts one discarded datagram.
func (r *Registry) RecordDrop(reason string) {
	if r == nil {
		return
	}
	r.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordSendError counts one failed socket write.
func (r *Registry) RecordSendError() {
	if r == nil {
		return
	}
	r.SendErrors.Inc()
}

// RecordSnapshotSent counts one snapshot of size bytes sent to one peer.
func (r *Registry) RecordSnapshotSent(size int) {
	if r == nil {
		return
	}
	r.SnapshotsSent.Inc()
	r.SnapshotBytes.Observe(float64(size))
}

// RecordSnapshotRejected counts one snapshot that was discarded: by a
// client that could not apply it, or by the host when it is oversized.
func (r *Registry) RecordSnapshotRejected(reason string) {
	if r == nil {
		return
	}
	r.SnapshotsRejected.WithLabelValues(reason).Inc()
}

// RecordEntitiesTruncated counts entities the host left out of one
// snapshot to keep it within a datagram.
func (r *Registry) RecordEntitiesTruncated(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.EntitiesTruncated.Add(float64(n))
}

// RecordReconcile records the outcome of one applied snapshot.
func (r *Registry) RecordReconcile(spawned, removed, smoothed, snapped int, seconds float64) {
	if r == nil {
		return
	}
	r.SnapshotsApplied.Inc()
	r.EntitiesSpawned.Add(float64(spawned))
	r.EntitiesRemoved.Add(float64(removed))
	r.SmoothingScheduled.Add(float64(smoothed))
	r.PositionSnaps.Add(float64(snapped))
	r.ReconcileDuration.Observe(seconds)
}
