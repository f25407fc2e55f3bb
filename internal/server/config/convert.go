package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"

	"github.com/yndnr/snapmesh-go/internal/core/reconcile"
	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
	"github.com/yndnr/snapmesh-go/internal/server/discovery"
	"github.com/yndnr/snapmesh-go/internal/storage/recorder"
)

// ToSessionConfig converts the session and reconcile sections.
func ToSessionConfig(cfg *ServerConfig) (service.Config, error) {
	if cfg == nil {
		return service.Config{}, fmt.Errorf("server config is nil")
	}

	peers := make([]netip.AddrPort, 0, len(cfg.Session.Peers))
	for _, p := range cfg.Session.Peers {
		addr, err := netip.ParseAddrPort(p)
		if err != nil {
			return service.Config{}, fmt.Errorf("parse peer %q: %w", p, err)
		}
		peers = append(peers, addr)
	}

	return service.Config{
		Role:             service.Role(cfg.Session.Role),
		TickRate:         cfg.Session.TickRate,
		SnapshotInterval: uint32(cfg.Session.SnapshotInterval),
		HelloInterval:    uint32(cfg.Session.HelloInterval),
		MaxPacket:        cfg.Transport.MaxPacket,
		Peers:            peers,
		Reconcile: reconcile.Config{
			Threshold:   cfg.Reconcile.SmoothThreshold,
			SmoothTicks: cfg.Reconcile.SmoothTicks,
			Capacity:    cfg.Reconcile.SmoothCapacity,
			MaxEntities: cfg.Reconcile.MaxEntities,
		},
	}, nil
}

// ToTransportConfig converts the transport section. Logger and metrics are
// left for the caller.
func ToTransportConfig(cfg *ServerConfig) transport.Config {
	return transport.Config{
		MaxChannels: cfg.Transport.MaxChannels,
		MaxPacket:   cfg.Transport.MaxPacket,
		QueueDepth:  cfg.Transport.QueueDepth,
		DefaultPort: DefaultBindPort,
	}
}

// ToRecorderConfig converts the record section.
func ToRecorderConfig(cfg *ServerConfig) recorder.Config {
	rc := recorder.DefaultConfig(cfg.Record.Dir)
	rc.GCInterval = cfg.Record.GCInterval
	return rc
}

// ToDiscoveryConfig converts the discovery section. gamePort is the UDP
// port the transport actually bound; it is advertised by hosts. An empty
// node name is replaced by a generated one.
func ToDiscoveryConfig(cfg *ServerConfig, gamePort uint16, logger *slog.Logger) (discovery.Config, error) {
	name := cfg.Discovery.NodeName
	if name == "" {
		generated, err := generateNodeName()
		if err != nil {
			return discovery.Config{}, fmt.Errorf("generate node name: %w", err)
		}
		name = generated
		logger.Info("generated discovery node name", "node", name)
	}

	meta := discovery.Metadata{Role: discovery.RoleClient}
	if cfg.Session.Role == string(service.RoleHost) {
		meta = discovery.Metadata{
			Role:     discovery.RoleHost,
			GameAddr: cfg.Discovery.BindAddr + ":" + strconv.Itoa(int(gamePort)),
		}
	}

	return discovery.Config{
		NodeName: name,
		BindAddr: cfg.Discovery.BindAddr,
		BindPort: cfg.Discovery.BindPort,
		Seeds:    cfg.Discovery.Seeds,
		Meta:     meta,
		Logger:   logger,
	}, nil
}

// generateNodeName returns "smnode-" followed by 16 hex chars.
func generateNodeName() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "smnode-" + hex.EncodeToString(buf), nil
}
