package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/reconcile"
	"github.com/yndnr/snapmesh-go/internal/core/snapshot"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// ClientDriver applies snapshots from the server and smooths positions.
type ClientDriver struct {
	engine        *reconcile.Engine
	tr            Transport
	helloInterval uint32
	resyncTicks   uint32
	ticks         uint32
	// lastSnapshot is the value of ticks when a snapshot was last applied.
	lastSnapshot uint32
	synced       bool
	announcing   bool
	last         reconcile.Result

	logger  *slog.Logger
	metrics *metric.Registry
}

// NewClientDriver creates a client driver reconciling into s. Once
// synced, the client goes back to sending Hello when resyncTicks pass
// without a snapshot, so a restarted host learns about it again.
func NewClientDriver(s domain.Simulation, tr Transport, cfg reconcile.Config, helloInterval, resyncTicks uint32, logger *slog.Logger, m *metric.Registry) *ClientDriver {
	if helloInterval == 0 {
		helloInterval = DefaultHelloInterval
	}
	if resyncTicks == 0 {
		resyncTicks = DefaultResyncTicks
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientDriver{
		engine:        reconcile.NewEngine(s, cfg),
		tr:            tr,
		helloInterval: helloInterval,
		resyncTicks:   resyncTicks,
		logger:        logger,
		metrics:       m,
	}
}

// Engine returns the reconciliation engine.
func (c *ClientDriver) Engine() *reconcile.Engine {
	return c.engine
}

// Synced reports whether a snapshot has been applied.
func (c *ClientDriver) Synced() bool {
	return c.synced
}

// LastResult returns the outcome of the most recent applied snapshot.
func (c *ClientDriver) LastResult() reconcile.Result {
	return c.last
}

// Tick advances smoothing for every local entity. Until the first
// snapshot arrives, and again whenever the server has been silent for
// resyncTicks, it also sends a Hello every helloInterval ticks.
func (c *ClientDriver) Tick(ctx context.Context) int {
	if c.synced && !c.announcing && c.ticks-c.lastSnapshot >= c.resyncTicks {
		c.logger.Warn("no snapshot from server, announcing again", "silent_ticks", c.ticks-c.lastSnapshot)
		c.announcing = true
	}
	if (!c.synced || c.announcing) && c.ticks%c.helloInterval == 0 {
		if err := c.tr.SendFrame(domain.ServerChannel, transport.Frame{Type: transport.FrameHello, Tick: c.ticks}); err != nil {
			c.logger.Debug("hello not sent", "error", err)
		}
	}
	c.ticks++
	return c.engine.Advance()
}

// Announcing reports whether the client is sending Hello because the
// server went silent after sync.
func (c *ClientDriver) Announcing() bool {
	return c.announcing
}

// Handle processes a frame received by the client. Only snapshots from
// the server channel are applied. Decode and reconcile failures reject
// the snapshot as a whole and are returned.
func (c *ClientDriver) Handle(r transport.Received) error {
	if r.Type != transport.FrameSnapshot {
		if r.Type != transport.FrameHello && r.Type != transport.FrameBye {
			c.metrics.RecordDrop(metric.ReasonUnknown)
		}
		return nil
	}
	if r.Channel != domain.ServerChannel {
		c.logger.Debug("snapshot from non-server peer ignored", "from", r.From.String(), "channel", r.Channel)
		return nil
	}

	snap, err := snapshot.Decode(r.Payload)
	if err != nil {
		c.metrics.RecordSnapshotRejected(metric.ReasonMalformed)
		c.logger.Warn("snapshot rejected", "tick", r.Tick, "error", err)
		return err
	}

	start := time.Now()
	res, err := c.engine.Apply(snap)
	if err != nil {
		reason := metric.ReasonMalformed
		if errors.Is(err, domain.ErrGeometryMismatch) {
			reason = metric.ReasonGeometry
		}
		c.metrics.RecordSnapshotRejected(reason)
		c.logger.Warn("snapshot rejected", "tick", snap.Tick, "error", err)
		return err
	}

	c.metrics.RecordReconcile(res.Spawned, res.Removed, res.Smoothed, res.Snapped, time.Since(start).Seconds())
	if !c.synced {
		c.logger.Info("first snapshot applied", "tick", snap.Tick, "entities", len(snap.Entities))
	}
	if c.announcing {
		c.logger.Info("server resumed sending snapshots", "tick", snap.Tick)
	}
	c.synced = true
	c.announcing = false
	c.lastSnapshot = c.ticks
	c.last = res
	return nil
}

// Leave tells the server this client is going away.
func (c *ClientDriver) Leave() error {
	return c.tr.SendFrame(domain.ServerChannel, transport.Frame{Type: transport.FrameBye, Tick: c.ticks})
}
