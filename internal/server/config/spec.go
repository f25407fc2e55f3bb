package config

import "time"

// ServerConfig is the root configuration for snapmesh-server.
type ServerConfig struct {
	Session   SessionSection   `koanf:"session"`
	Transport TransportSection `koanf:"transport"`
	Reconcile ReconcileSection `koanf:"reconcile"`
	World     WorldSection     `koanf:"world"`
	Admin     AdminSection     `koanf:"admin"`
	Discovery DiscoverySection `koanf:"discovery"`
	Record    RecordSection    `koanf:"record"`
	Log       LogSection       `koanf:"log"`
}

// SessionSection configures the tick loop and the node's role.
type SessionSection struct {
	// Role is "host" or "client".
	Role string `koanf:"role"`

	// BindPort is the UDP game port. 0 scans upward from 1024 for a
	// free port.
	BindPort int `koanf:"bind_port"`

	// Server is the host address a client connects to ("host[:port]").
	// When empty, a client with discovery enabled waits for a host to be
	// advertised.
	Server string `koanf:"server"`

	TickRate         int `koanf:"tick_rate"`
	SnapshotInterval int `koanf:"snapshot_interval"`
	HelloInterval    int `koanf:"hello_interval"`

	// Peers are client addresses ("ip:port") a host sends to from the
	// first tick.
	Peers []string `koanf:"peers"`
}

// TransportSection configures the UDP transport.
type TransportSection struct {
	MaxChannels int `koanf:"max_channels"`
	MaxPacket   int `koanf:"max_packet"`
	QueueDepth  int `koanf:"queue_depth"`
}

// ReconcileSection tunes client-side reconciliation.
type ReconcileSection struct {
	// SmoothThreshold is the squared distance below which corrections
	// are smoothed instead of snapped.
	SmoothThreshold int64 `koanf:"smooth_threshold"`
	SmoothTicks     int   `koanf:"smooth_ticks"`
	SmoothCapacity  int   `koanf:"smooth_capacity"`
	MaxEntities     int   `koanf:"max_entities"`
}

// WorldSection shapes the built-in simulation. Hosts and clients must
// agree on Sectors and Lines.
type WorldSection struct {
	Sectors      int    `koanf:"sectors"`
	Lines        int    `koanf:"lines"`
	DemoEntities int    `koanf:"demo_entities"`
	Seed         uint64 `koanf:"seed"`
}

// AdminSection configures the admin HTTP API.
type AdminSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// AllowList restricts clients by IP or CIDR. Empty admits everyone.
	AllowList []string `koanf:"allow_list"`

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit int `koanf:"rate_limit"`
}

// DiscoverySection configures LAN host discovery.
type DiscoverySection struct {
	Enabled  bool   `koanf:"enabled"`
	BindAddr string `koanf:"bind_addr"`
	BindPort int    `koanf:"bind_port"`

	// Seeds are gossip addresses ("ip:port") of known members.
	Seeds []string `koanf:"seeds"`

	// NodeName must be unique in the pool. Generated when empty.
	NodeName string `koanf:"node_name"`
}

// RecordSection configures snapshot recording on hosts.
type RecordSection struct {
	Enabled    bool          `koanf:"enabled"`
	Dir        string        `koanf:"dir"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
