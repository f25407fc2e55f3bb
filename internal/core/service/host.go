package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/snapshot"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
	"github.com/yndnr/snapmesh-go/internal/sim"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// HostDriver emits periodic snapshots from the authoritative simulation.
type HostDriver struct {
	sim      domain.Simulation
	tr       Transport
	rec      Recorder
	session  ulid.ULID
	interval uint32
	lastID   uint32
	// maxPacket bounds a whole snapshot frame, header included.
	maxPacket int

	logger   *slog.Logger
	truncLog *slog.Logger
	metrics  *metric.Registry
	frame    []byte
}

// NewHostDriver creates a host driver. rec may be nil. maxPacket is the
// largest datagram peers accept; 0 means transport.DefaultMaxPacket.
func NewHostDriver(s domain.Simulation, tr Transport, rec Recorder, session ulid.ULID, interval uint32, maxPacket int, log *slog.Logger, m *metric.Registry) *HostDriver {
	if interval == 0 {
		interval = DefaultSnapshotInterval
	}
	if maxPacket <= 0 || maxPacket > transport.DefaultMaxPacket {
		maxPacket = transport.DefaultMaxPacket
	}
	if log == nil {
		log = slog.Default()
	}
	return &HostDriver{
		sim:       s,
		tr:        tr,
		rec:       rec,
		session:   session,
		interval:  interval,
		maxPacket: maxPacket,
		logger:    log,
		truncLog:  logger.Throttle(log, 30*time.Second, 1),
		metrics:   m,
	}
}

// nextID returns the next entity id. Zero is skipped on wrap since it
// means "unassigned".
func (h *HostDriver) nextID() uint32 {
	h.lastID++
	if h.lastID == 0 {
		h.lastID = 1
	}
	return h.lastID
}

// BuildSnapshot assigns ids to entities that have none, then captures
// every entity.
func (h *HostDriver) BuildSnapshot() *domain.Snapshot {
	for _, e := range h.sim.Entities() {
		if e.ID == 0 {
			e.ID = h.nextID()
		}
	}
	return sim.Capture(h.sim)
}

// Tick sends a snapshot to every peer when the simulation tick falls on
// the snapshot interval. It returns the number of peers sent to.
//
// Entities that would push the frame past maxPacket are left off the
// end of the list, so every interval still produces a snapshot.
func (h *HostDriver) Tick(ctx context.Context) int {
	tick := h.sim.Tick()
	if tick%h.interval != 0 {
		return 0
	}

	snap := h.BuildSnapshot()
	n := snapshot.EntitiesWithin(snap, h.maxPacket-transport.FrameHeaderSize)
	if n < 0 {
		h.truncLog.Warn("snapshot geometry exceeds datagram limit, not sent",
			"tick", tick, "max_packet", h.maxPacket, "sectors", len(snap.Sectors), "lines", len(snap.Lines))
		h.metrics.RecordSnapshotRejected("oversize")
		return 0
	}
	if dropped := len(snap.Entities) - n; dropped > 0 {
		h.truncLog.Warn("snapshot truncated to fit datagram",
			"tick", tick, "entities", len(snap.Entities), "sent", n, "max_packet", h.maxPacket)
		h.metrics.RecordEntitiesTruncated(dropped)
		snap.Entities = snap.Entities[:n]
	}

	h.frame = transport.AppendFrame(h.frame[:0], transport.Frame{Type: transport.FrameSnapshot, Tick: tick})
	h.frame = snapshot.AppendEncode(h.frame, snap)
	h.frame[0] = transport.Checksum(h.frame)
	payload := h.frame[transport.FrameHeaderSize:]

	sent := 0
	for _, ch := range h.tr.Peers() {
		if err := h.tr.SendTo(ch, h.frame); err != nil {
			continue
		}
		h.metrics.RecordSnapshotSent(len(payload))
		sent++
	}

	if h.rec != nil {
		if err := h.rec.Append(ctx, h.session, tick, payload); err != nil {
			h.logger.Error("record snapshot failed", "tick", tick, "error", err)
		}
	}
	return sent
}

// Handle processes a frame received by the host. Hello registers the
// sender, Bye unregisters it; snapshots are ignored.
func (h *HostDriver) Handle(r transport.Received) error {
	switch r.Type {
	case transport.FrameHello:
		id, err := h.tr.RegisterChannel(r.From)
		if err != nil {
			h.logger.Warn("peer rejected", "from", r.From.String(), "error", err)
			return err
		}
		if id != r.Channel {
			h.logger.Info("peer joined", "channel", id, "from", r.From.String())
		}
	case transport.FrameBye:
		if r.Channel <= domain.ServerChannel {
			return nil
		}
		if err := h.tr.UnregisterChannel(r.Channel); err != nil {
			return err
		}
		h.logger.Info("peer left", "channel", r.Channel, "from", r.From.String())
	case transport.FrameSnapshot:
		h.logger.Debug("host ignores snapshot frame", "from", r.From.String())
	default:
		h.metrics.RecordDrop(metric.ReasonUnknown)
		h.logger.Debug("unknown frame type", "type", r.Type.String(), "from", r.From.String())
	}
	return nil
}
