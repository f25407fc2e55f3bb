package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/memberlist"
)

// Advertised roles.
const (
	RoleHost   = "host"
	RoleClient = "client"
)

// Metadata is the JSON document a node gossips about itself.
type Metadata struct {
	Role     string `json:"role"`
	GameAddr string `json:"game_addr,omitempty"`
}

// Config configures a Discovery.
type Config struct {
	// NodeName must be unique in the pool.
	NodeName string
	BindAddr string
	// BindPort 0 picks a free port.
	BindPort int
	Seeds    []string
	Meta     Metadata
	Logger   *slog.Logger
}

// Host is a discovered host node.
type Host struct {
	Node     string         `json:"node"`
	GameAddr netip.AddrPort `json:"game_addr"`
}

// Discovery tracks pool membership.
type Discovery struct {
	ml     *memberlist.Memberlist
	logger *slog.Logger

	// changed is signalled whenever a host joins or updates.
	changed chan struct{}

	mu       sync.Mutex
	shutdown bool
	onJoin   func(Host)
	onLeave  func(node string)
}

// New starts a gossip member and joins cfg.Seeds when given.
func New(cfg Config) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	meta, err := json.Marshal(cfg.Meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if len(meta) > memberlist.MetaMaxSize {
		return nil, fmt.Errorf("metadata is %d bytes, limit %d", len(meta), memberlist.MetaMaxSize)
	}

	d := &Discovery{
		logger:  cfg.Logger,
		changed: make(chan struct{}, 1),
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeName
	if cfg.BindAddr != "" {
		mlConfig.BindAddr = cfg.BindAddr
	}
	mlConfig.BindPort = cfg.BindPort
	mlConfig.AdvertisePort = cfg.BindPort
	mlConfig.Delegate = &metadataDelegate{meta: meta}
	mlConfig.Events = &eventDelegate{d: d}
	mlConfig.LogOutput = &slogWriter{logger: cfg.Logger}

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}
	d.ml = ml

	if len(cfg.Seeds) > 0 {
		n, err := ml.Join(cfg.Seeds)
		if err != nil {
			ml.Shutdown()
			return nil, fmt.Errorf("join seeds: %w", err)
		}
		cfg.Logger.Info("joined discovery pool", "node", cfg.NodeName, "seeds", cfg.Seeds, "contacted", n)
	} else {
		cfg.Logger.Info("started discovery pool", "node", cfg.NodeName)
	}
	return d, nil
}

// OnJoin registers a callback for host joins.
func (d *Discovery) OnJoin(fn func(Host)) {
	d.mu.Lock()
	d.onJoin = fn
	d.mu.Unlock()
}

// OnLeave registers a callback for any node leaving.
func (d *Discovery) OnLeave(fn func(node string)) {
	d.mu.Lock()
	d.onLeave = fn
	d.mu.Unlock()
}

// LocalNode returns this member's node.
func (d *Discovery) LocalNode() *memberlist.Node {
	return d.ml.LocalNode()
}

// Members returns every live member, this node included.
func (d *Discovery) Members() []*memberlist.Node {
	return d.ml.Members()
}

// Hosts returns the live host members other than this node, sorted by
// node name.
func (d *Discovery) Hosts() []Host {
	local := d.ml.LocalNode().Name
	var hosts []Host
	for _, n := range d.ml.Members() {
		if n.Name == local {
			continue
		}
		if h, ok := hostOf(n); ok {
			hosts = append(hosts, h)
		}
	}
	slices.SortFunc(hosts, func(a, b Host) int { return strings.Compare(a.Node, b.Node) })
	return hosts
}

// WaitHost blocks until a host is known or ctx is done.
func (d *Discovery) WaitHost(ctx context.Context) (Host, error) {
	for {
		if hosts := d.Hosts(); len(hosts) > 0 {
			return hosts[0], nil
		}
		select {
		case <-ctx.Done():
			return Host{}, ctx.Err()
		case <-d.changed:
		}
	}
}

// Leave broadcasts a leave and waits up to timeout for it to propagate.
func (d *Discovery) Leave(timeout time.Duration) error {
	if err := d.ml.Leave(timeout); err != nil {
		d.logger.Error("failed to leave discovery pool", "error", err)
		return err
	}
	d.logger.Info("left discovery pool")
	return nil
}

// Shutdown stops the member. Further calls are no-ops.
func (d *Discovery) Shutdown() error {
	d.mu.Lock()
	if d.shutdown {
		d.mu.Unlock()
		return nil
	}
	d.shutdown = true
	d.mu.Unlock()

	if err := d.ml.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	return nil
}

// hostOf decodes n's metadata. A game address with an unspecified IP is
// completed with the node's gossip address.
func hostOf(n *memberlist.Node) (Host, bool) {
	var meta Metadata
	if err := json.Unmarshal(n.Meta, &meta); err != nil || meta.Role != RoleHost {
		return Host{}, false
	}
	addr, err := parseGameAddr(meta.GameAddr, n.Addr)
	if err != nil {
		return Host{}, false
	}
	return Host{Node: n.Name, GameAddr: addr}, true
}

func parseGameAddr(s string, fallback net.IP) (netip.AddrPort, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return netip.AddrPort{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return netip.AddrPort{}, fmt.Errorf("invalid game port %q", portStr)
	}

	ip, err := netip.ParseAddr(host)
	if host == "" || (err == nil && ip.IsUnspecified()) {
		var ok bool
		if ip, ok = netip.AddrFromSlice(fallback); !ok {
			return netip.AddrPort{}, fmt.Errorf("no address for %q", s)
		}
	} else if err != nil {
		return netip.AddrPort{}, err
	}
	return netip.AddrPortFrom(ip.Unmap(), uint16(port)), nil
}

func (d *Discovery) notify() {
	select {
	case d.changed <- struct{}{}:
	default:
	}
}

type eventDelegate struct {
	d *Discovery
}

func (e *eventDelegate) NotifyJoin(n *memberlist.Node) {
	h, ok := hostOf(n)
	if !ok {
		e.d.logger.Debug("node joined", "node", n.Name, "addr", n.Address())
		return
	}
	e.d.logger.Info("host joined", "node", n.Name, "game_addr", h.GameAddr.String())
	e.d.notify()

	e.d.mu.Lock()
	fn := e.d.onJoin
	e.d.mu.Unlock()
	if fn != nil {
		fn(h)
	}
}

func (e *eventDelegate) NotifyLeave(n *memberlist.Node) {
	e.d.logger.Info("node left", "node", n.Name, "addr", n.Address())

	e.d.mu.Lock()
	fn := e.d.onLeave
	e.d.mu.Unlock()
	if fn != nil {
		fn(n.Name)
	}
}

func (e *eventDelegate) NotifyUpdate(n *memberlist.Node) {
	e.d.logger.Debug("node updated", "node", n.Name)
	e.d.notify()
}

// slogWriter adapts memberlist's log output to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(strings.TrimSpace(string(p)), "component", "memberlist")
	return len(p), nil
}

// metadataDelegate serves the node's metadata; the remaining delegate
// hooks are unused.
type metadataDelegate struct {
	meta []byte
}

func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.meta) > limit {
		return m.meta[:limit]
	}
	return m.meta
}

func (m *metadataDelegate) NotifyMsg([]byte)                           {}
func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (m *metadataDelegate) LocalState(join bool) []byte                { return nil }
func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool)     {}
