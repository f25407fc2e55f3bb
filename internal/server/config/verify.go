package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/snapshot"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	checks := []func(*ServerConfig) error{
		verifySession,
		verifyTransport,
		verifyReconcile,
		verifyWorld,
		verifyAdmin,
		verifyDiscovery,
		verifyRecord,
		verifyLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func verifySession(cfg *ServerConfig) error {
	s := &cfg.Session
	switch s.Role {
	case "host", "client":
	default:
		return fmt.Errorf("session.role must be host or client, got %q", s.Role)
	}
	if s.BindPort < 0 || s.BindPort > 65535 {
		return fmt.Errorf("session.bind_port %d out of range", s.BindPort)
	}
	if s.TickRate < 1 || s.TickRate > 1000 {
		return fmt.Errorf("session.tick_rate must be 1..1000, got %d", s.TickRate)
	}
	if s.SnapshotInterval < 1 {
		return errors.New("session.snapshot_interval must be at least 1")
	}
	if s.HelloInterval < 1 {
		return errors.New("session.hello_interval must be at least 1")
	}
	if s.Role == "client" && s.Server == "" && !cfg.Discovery.Enabled {
		return errors.New("session.server is required for clients unless discovery is enabled")
	}
	if s.Role == "host" && len(s.Peers) >= cfg.Transport.MaxChannels {
		return fmt.Errorf("session.peers has %d entries, transport.max_channels allows %d",
			len(s.Peers), cfg.Transport.MaxChannels-1)
	}
	for _, p := range s.Peers {
		if _, err := netip.ParseAddrPort(p); err != nil {
			return fmt.Errorf("session.peers: %w", err)
		}
	}
	return nil
}

func verifyTransport(cfg *ServerConfig) error {
	t := &cfg.Transport
	if t.MaxChannels < 2 {
		return errors.New("transport.max_channels must be at least 2")
	}
	if t.MaxPacket < 64 || t.MaxPacket > 65507 {
		return fmt.Errorf("transport.max_packet must be 64..65507, got %d", t.MaxPacket)
	}
	if t.QueueDepth < 1 {
		return errors.New("transport.queue_depth must be at least 1")
	}
	return nil
}

func verifyReconcile(cfg *ServerConfig) error {
	r := &cfg.Reconcile
	if r.SmoothThreshold < 0 {
		return errors.New("reconcile.smooth_threshold must not be negative")
	}
	if r.SmoothTicks < 1 {
		return errors.New("reconcile.smooth_ticks must be at least 1")
	}
	if r.SmoothCapacity < 1 {
		return errors.New("reconcile.smooth_capacity must be at least 1")
	}
	if r.MaxEntities < 1 || r.MaxEntities > domain.MaxEntities {
		return fmt.Errorf("reconcile.max_entities must be 1..%d, got %d", domain.MaxEntities, r.MaxEntities)
	}
	return nil
}

func verifyWorld(cfg *ServerConfig) error {
	w := &cfg.World
	if w.Sectors < 0 || w.Lines < 0 {
		return errors.New("world.sectors and world.lines must not be negative")
	}
	if w.DemoEntities < 0 || w.DemoEntities > domain.MaxEntities {
		return fmt.Errorf("world.demo_entities must be 0..%d, got %d", domain.MaxEntities, w.DemoEntities)
	}
	geometry := &domain.Snapshot{
		Sectors: make([]domain.SectorState, w.Sectors),
		Lines:   make([]domain.LineState, w.Lines),
	}
	if snapshot.EntitiesWithin(geometry, cfg.Transport.MaxPacket-transport.FrameHeaderSize) < 0 {
		return fmt.Errorf("world.sectors and world.lines do not fit in transport.max_packet %d", cfg.Transport.MaxPacket)
	}
	return nil
}

func verifyAdmin(cfg *ServerConfig) error {
	if !cfg.Admin.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Admin.Addr); err != nil {
		return fmt.Errorf("admin.addr: %w", err)
	}
	if cfg.Admin.RateLimit < 0 {
		return errors.New("admin.rate_limit must not be negative")
	}
	for _, entry := range cfg.Admin.AllowList {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("admin.allow_list: %q is neither an IP nor a CIDR", entry)
		}
	}
	return nil
}

func verifyDiscovery(cfg *ServerConfig) error {
	d := &cfg.Discovery
	if !d.Enabled {
		return nil
	}
	if d.BindPort < 0 || d.BindPort > 65535 {
		return fmt.Errorf("discovery.bind_port %d out of range", d.BindPort)
	}
	if d.BindPort != 0 && d.BindPort == cfg.Session.BindPort {
		return errors.New("discovery.bind_port conflicts with session.bind_port")
	}
	return nil
}

func verifyRecord(cfg *ServerConfig) error {
	r := &cfg.Record
	if !r.Enabled {
		return nil
	}
	if r.Dir == "" {
		return errors.New("record.dir is required")
	}
	if err := os.MkdirAll(r.Dir, 0750); err != nil {
		return fmt.Errorf("cannot create record directory: %w", err)
	}
	if r.GCInterval < 0 {
		return errors.New("record.gc_interval must not be negative")
	}
	return nil
}

func verifyLog(cfg *ServerConfig) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}
