package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/server/discovery"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Session.Role != DefaultRole {
		t.Errorf("Session.Role = %q, want %q", cfg.Session.Role, DefaultRole)
	}
	if cfg.Session.BindPort != DefaultBindPort {
		t.Errorf("Session.BindPort = %d, want %d", cfg.Session.BindPort, DefaultBindPort)
	}
	if cfg.Transport.MaxChannels != DefaultMaxChannels {
		t.Errorf("Transport.MaxChannels = %d", cfg.Transport.MaxChannels)
	}
	if cfg.Reconcile.SmoothThreshold != DefaultSmoothThreshold || cfg.Reconcile.SmoothTicks != DefaultSmoothTicks {
		t.Errorf("Reconcile = %+v", cfg.Reconcile)
	}
	if !cfg.Admin.Enabled || cfg.Admin.Addr != DefaultAdminAddr {
		t.Errorf("Admin = %+v", cfg.Admin)
	}
	if cfg.Discovery.Enabled {
		t.Error("discovery should be disabled by default")
	}
	if cfg.Record.Enabled {
		t.Error("recording should be disabled by default")
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"valid client", func(c *ServerConfig) { c.Session.Role = "client"; c.Session.Server = "10.0.0.1" }, ""},
		{"client via discovery", func(c *ServerConfig) { c.Session.Role = "client"; c.Discovery.Enabled = true }, ""},
		{"unknown role", func(c *ServerConfig) { c.Session.Role = "observer" }, "session.role"},
		{"client without server", func(c *ServerConfig) { c.Session.Role = "client" }, "session.server"},
		{"bind port range", func(c *ServerConfig) { c.Session.BindPort = 70000 }, "session.bind_port"},
		{"zero tick rate", func(c *ServerConfig) { c.Session.TickRate = 0 }, "session.tick_rate"},
		{"zero snapshot interval", func(c *ServerConfig) { c.Session.SnapshotInterval = 0 }, "session.snapshot_interval"},
		{"zero hello interval", func(c *ServerConfig) { c.Session.HelloInterval = 0 }, "session.hello_interval"},
		{"bad peer", func(c *ServerConfig) { c.Session.Peers = []string{"not-an-addr"} }, "session.peers"},
		{"too many peers", func(c *ServerConfig) {
			c.Transport.MaxChannels = 2
			c.Session.Peers = []string{"10.0.0.1:5030", "10.0.0.2:5030"}
		}, "session.peers"},
		{"tiny channel table", func(c *ServerConfig) { c.Transport.MaxChannels = 1 }, "transport.max_channels"},
		{"oversized packet", func(c *ServerConfig) { c.Transport.MaxPacket = 70000 }, "transport.max_packet"},
		{"zero queue", func(c *ServerConfig) { c.Transport.QueueDepth = 0 }, "transport.queue_depth"},
		{"negative threshold", func(c *ServerConfig) { c.Reconcile.SmoothThreshold = -1 }, "reconcile.smooth_threshold"},
		{"zero smooth ticks", func(c *ServerConfig) { c.Reconcile.SmoothTicks = 0 }, "reconcile.smooth_ticks"},
		{"zero capacity", func(c *ServerConfig) { c.Reconcile.SmoothCapacity = 0 }, "reconcile.smooth_capacity"},
		{"entity ceiling", func(c *ServerConfig) { c.Reconcile.MaxEntities = 5000 }, "reconcile.max_entities"},
		{"negative sectors", func(c *ServerConfig) { c.World.Sectors = -1 }, "world.sectors"},
		{"geometry over max packet", func(c *ServerConfig) { c.Transport.MaxPacket = 512; c.World.Sectors = 200 }, "transport.max_packet"},
		{"demo entities beyond one datagram", func(c *ServerConfig) { c.World.DemoEntities = domain.MaxEntities }, ""},
		{"too many demo entities", func(c *ServerConfig) { c.World.DemoEntities = 5000 }, "world.demo_entities"},
		{"bad admin addr", func(c *ServerConfig) { c.Admin.Addr = "localhost" }, "admin.addr"},
		{"negative admin rate", func(c *ServerConfig) { c.Admin.RateLimit = -1 }, "admin.rate_limit"},
		{"admin allow list", func(c *ServerConfig) { c.Admin.AllowList = []string{"10.0.0.0/8", "127.0.0.1"} }, ""},
		{"bad admin allow entry", func(c *ServerConfig) { c.Admin.AllowList = []string{"intranet"} }, "admin.allow_list"},
		{"admin disabled ignores addr", func(c *ServerConfig) { c.Admin.Enabled = false; c.Admin.Addr = "" }, ""},
		{"discovery port clash", func(c *ServerConfig) {
			c.Discovery.Enabled = true
			c.Discovery.BindPort = c.Session.BindPort
		}, "discovery.bind_port"},
		{"record without dir", func(c *ServerConfig) { c.Record.Enabled = true; c.Record.Dir = "" }, "record.dir"},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_Nil(t *testing.T) {
	if err := Verify(nil); err == nil {
		t.Error("Verify(nil) should fail")
	}
}

func TestVerify_CreatesRecordDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "record")
	cfg := Default()
	cfg.Record.Enabled = true
	cfg.Record.Dir = dir

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("record dir not created: %v", err)
	}
}

func TestToSessionConfig(t *testing.T) {
	cfg := Default()
	cfg.Session.Peers = []string{"10.0.0.1:5030", "10.0.0.2:6000"}
	cfg.Session.SnapshotInterval = 7
	cfg.Reconcile.SmoothThreshold = 100
	cfg.Transport.MaxPacket = 1400

	sc, err := ToSessionConfig(cfg)
	if err != nil {
		t.Fatalf("ToSessionConfig() error = %v", err)
	}
	if sc.Role != service.RoleHost || sc.SnapshotInterval != 7 || sc.TickRate != DefaultTickRate {
		t.Errorf("session config = %+v", sc)
	}
	if sc.MaxPacket != 1400 {
		t.Errorf("MaxPacket = %d, want the transport's 1400", sc.MaxPacket)
	}
	if len(sc.Peers) != 2 || sc.Peers[1].Port() != 6000 {
		t.Errorf("Peers = %v", sc.Peers)
	}
	if sc.Reconcile.Threshold != 100 || sc.Reconcile.SmoothTicks != DefaultSmoothTicks {
		t.Errorf("Reconcile = %+v", sc.Reconcile)
	}

	cfg.Session.Peers = []string{"nope"}
	if _, err := ToSessionConfig(cfg); err == nil {
		t.Error("expected error for unparsable peer")
	}
	if _, err := ToSessionConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestToTransportAndRecorderConfig(t *testing.T) {
	cfg := Default()
	cfg.Transport.QueueDepth = 8
	cfg.Record.Dir = "/tmp/rec"
	cfg.Record.GCInterval = time.Minute

	tc := ToTransportConfig(cfg)
	if tc.QueueDepth != 8 || tc.MaxChannels != DefaultMaxChannels || tc.DefaultPort != DefaultBindPort {
		t.Errorf("transport config = %+v", tc)
	}
	rc := ToRecorderConfig(cfg)
	if rc.Dir != "/tmp/rec" || rc.GCInterval != time.Minute || rc.GCThreshold == 0 {
		t.Errorf("recorder config = %+v", rc)
	}
}

func TestToDiscoveryConfig(t *testing.T) {
	logger := slog.Default()

	t.Run("host advertises game address", func(t *testing.T) {
		cfg := Default()
		cfg.Discovery.NodeName = "host-1"
		cfg.Discovery.BindAddr = "192.168.1.10"

		dc, err := ToDiscoveryConfig(cfg, 5040, logger)
		if err != nil {
			t.Fatal(err)
		}
		if dc.NodeName != "host-1" || dc.BindPort != DefaultDiscoveryPort {
			t.Errorf("discovery config = %+v", dc)
		}
		want := discovery.Metadata{Role: discovery.RoleHost, GameAddr: "192.168.1.10:5040"}
		if dc.Meta != want {
			t.Errorf("Meta = %+v, want %+v", dc.Meta, want)
		}
	})

	t.Run("client generates a node name", func(t *testing.T) {
		cfg := Default()
		cfg.Session.Role = "client"

		dc, err := ToDiscoveryConfig(cfg, 5030, logger)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(dc.NodeName, "smnode-") || len(dc.NodeName) != len("smnode-")+16 {
			t.Errorf("NodeName = %q", dc.NodeName)
		}
		meta, _ := json.Marshal(dc.Meta)
		if string(meta) != `{"role":"client"}` {
			t.Errorf("Meta = %s", meta)
		}
	})
}

func TestGenerateNodeName_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name, err := generateNodeName()
		if err != nil {
			t.Fatal(err)
		}
		if seen[name] {
			t.Fatalf("duplicate node name %q", name)
		}
		seen[name] = true
	}
}
