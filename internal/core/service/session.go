package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/reconcile"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// Config configures a Session.
type Config struct {
	Role Role
	// TickRate is the number of ticks per second.
	TickRate int
	// SnapshotInterval is the host's snapshot cadence in ticks.
	SnapshotInterval uint32
	// HelloInterval is the client's Hello cadence in ticks until synced.
	HelloInterval uint32
	// ResyncTicks is how long a synced client waits without a snapshot
	// before announcing itself again. 0 means DefaultResyncTicks.
	ResyncTicks uint32
	// MaxPacket is the largest datagram the host sends.
	MaxPacket int
	// Peers are registered on the host before the first tick.
	Peers     []netip.AddrPort
	Reconcile reconcile.Config
}

// Deps holds optional collaborators.
type Deps struct {
	Recorder Recorder
	Logger   *slog.Logger
	Metrics  *metric.Registry
}

// Status is a point-in-time view of a session, safe to read from any
// goroutine.
type Status struct {
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	StartedAt time.Time `json:"started_at"`
	Tick      uint32    `json:"tick"`
	Entities  int       `json:"entities"`
	Smoothing int       `json:"smoothing"`
	Synced    bool      `json:"synced"`
	Channels  int       `json:"channels"`
}

// Session runs one host or client tick loop.
type Session struct {
	id      ulid.ULID
	cfg     Config
	world   World
	tr      Transport
	host    *HostDriver
	client  *ClientDriver
	logger  *slog.Logger
	metrics *metric.Registry
	started time.Time

	tick      atomic.Uint32
	entities  atomic.Int64
	smoothing atomic.Int64
	synced    atomic.Bool
}

// NewSession creates a session for cfg.Role over world and tr.
func NewSession(cfg Config, world World, tr Transport, deps Deps) (*Session, error) {
	if !cfg.Role.Valid() {
		return nil, domain.ErrInvalidArgument.WithDetails("unknown role %q", cfg.Role)
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}

	id := ulid.Make()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session_id", id.String(), "role", string(cfg.Role))

	s := &Session{
		id:      id,
		cfg:     cfg,
		world:   world,
		tr:      tr,
		logger:  log,
		metrics: deps.Metrics,
		started: time.Now(),
	}

	switch cfg.Role {
	case RoleHost:
		s.host = NewHostDriver(world, tr, deps.Recorder, id, cfg.SnapshotInterval, cfg.MaxPacket, log, deps.Metrics)
	case RoleClient:
		s.client = NewClientDriver(world, tr, cfg.Reconcile, cfg.HelloInterval, cfg.ResyncTicks, log, deps.Metrics)
	}
	s.publish()
	return s, nil
}

// ID returns the session's ULID.
func (s *Session) ID() ulid.ULID { return s.id }

// Role returns the session's role.
func (s *Session) Role() Role { return s.cfg.Role }

// Host returns the host driver, nil for clients.
func (s *Session) Host() *HostDriver { return s.host }

// Client returns the client driver, nil for hosts.
func (s *Session) Client() *ClientDriver { return s.client }

// Run drives the tick loop until ctx is done. On exit a client sends Bye
// to its server. Closing the transport is left to the caller.
func (s *Session) Run(ctx context.Context) error {
	ctx = logger.WithSessionID(ctx, s.id.String())

	if s.host != nil {
		for _, p := range s.cfg.Peers {
			if _, err := s.tr.RegisterChannel(p); err != nil {
				return fmt.Errorf("register peer %s: %w", p, err)
			}
		}
	}

	period := time.Second / time.Duration(s.cfg.TickRate)
	s.logger.Info("session started", "tick_rate", s.cfg.TickRate, "peers", len(s.tr.Peers()))

	next := time.Now()
	for {
		next = next.Add(period)
		if err := s.cycle(ctx, next); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
	}

	if s.client != nil {
		if err := s.client.Leave(); err != nil {
			s.logger.Debug("bye not sent", "error", err)
		}
	}
	s.logger.Info("session stopped", "tick", s.tick.Load())
	return nil
}

// cycle waits for at most one datagram until deadline, dispatches it,
// sleeps out the rest of the tick and then steps the driver.
func (s *Session) cycle(ctx context.Context, deadline time.Time) error {
	if err := s.tr.WaitReadable(ctx, time.Until(deadline)); err != nil {
		return err
	}
	if r, ok := s.tr.ReceiveFrame(); ok {
		if err := s.Dispatch(r); err != nil {
			s.logger.Debug("dispatch failed", "type", r.Type.String(), "error", err)
		}
	}

	if wait := time.Until(deadline); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.Step(ctx)
	return nil
}

// Step runs one tick of the role's driver. Hosts advance the simulation
// first.
func (s *Session) Step(ctx context.Context) {
	switch {
	case s.host != nil:
		s.world.Step()
		s.host.Tick(ctx)
	case s.client != nil:
		s.client.Tick(ctx)
	}
	s.publish()
}

// Dispatch routes one received frame to the role's driver.
func (s *Session) Dispatch(r transport.Received) error {
	switch {
	case s.host != nil:
		return s.host.Handle(r)
	case s.client != nil:
		err := s.client.Handle(r)
		s.publish()
		return err
	}
	return nil
}

func (s *Session) publish() {
	s.tick.Store(s.world.Tick())
	s.entities.Store(int64(len(s.world.Entities())))
	if s.client != nil {
		s.smoothing.Store(int64(s.client.Engine().Cache().Active()))
		s.synced.Store(s.client.Synced())
	}
}

// Status returns the session's current status.
func (s *Session) Status() Status {
	return Status{
		SessionID: s.id.String(),
		Role:      s.cfg.Role,
		StartedAt: s.started,
		Tick:      s.tick.Load(),
		Entities:  int(s.entities.Load()),
		Smoothing: int(s.smoothing.Load()),
		Synced:    s.synced.Load(),
		Channels:  len(s.tr.Channels()),
	}
}

// Stats adapts Status for the metrics collector.
func (s *Session) Stats() metric.SessionStats {
	st := s.Status()
	return metric.SessionStats{
		Tick:      st.Tick,
		Channels:  st.Channels,
		Entities:  st.Entities,
		Smoothing: st.Smoothing,
	}
}
