package config

import "time"

// Default configuration values.
const (
	DefaultRole             = "host"
	DefaultBindPort         = 5030
	DefaultTickRate         = 35
	DefaultSnapshotInterval = 35
	DefaultHelloInterval    = 35

	DefaultMaxChannels = 32
	DefaultMaxPacket   = 65507
	DefaultQueueDepth  = 64

	DefaultSmoothThreshold = 64
	DefaultSmoothTicks     = 4
	DefaultSmoothCapacity  = 8192
	DefaultMaxEntities     = 4096

	DefaultSectors      = 16
	DefaultLines        = 32
	DefaultDemoEntities = 64

	DefaultAdminAddr      = "127.0.0.1:5080"
	DefaultAdminRateLimit = 50

	DefaultDiscoveryAddr = "0.0.0.0"
	DefaultDiscoveryPort = 5031

	DefaultRecordDir        = "/var/lib/snapmesh-server/record"
	DefaultRecordGCInterval = 10 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Session: SessionSection{
			Role:             DefaultRole,
			BindPort:         DefaultBindPort,
			TickRate:         DefaultTickRate,
			SnapshotInterval: DefaultSnapshotInterval,
			HelloInterval:    DefaultHelloInterval,
		},
		Transport: TransportSection{
			MaxChannels: DefaultMaxChannels,
			MaxPacket:   DefaultMaxPacket,
			QueueDepth:  DefaultQueueDepth,
		},
		Reconcile: ReconcileSection{
			SmoothThreshold: DefaultSmoothThreshold,
			SmoothTicks:     DefaultSmoothTicks,
			SmoothCapacity:  DefaultSmoothCapacity,
			MaxEntities:     DefaultMaxEntities,
		},
		World: WorldSection{
			Sectors:      DefaultSectors,
			Lines:        DefaultLines,
			DemoEntities: DefaultDemoEntities,
			Seed:         1,
		},
		Admin: AdminSection{
			Enabled:   true,
			Addr:      DefaultAdminAddr,
			RateLimit: DefaultAdminRateLimit,
		},
		Discovery: DiscoverySection{
			BindAddr: DefaultDiscoveryAddr,
			BindPort: DefaultDiscoveryPort,
		},
		Record: RecordSection{
			Dir:        DefaultRecordDir,
			GCInterval: DefaultRecordGCInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
