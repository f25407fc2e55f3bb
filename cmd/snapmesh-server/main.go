package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/snapmesh-go/internal/infra/confloader"
	"github.com/yndnr/snapmesh-go/internal/infra/shutdown"
	"github.com/yndnr/snapmesh-go/internal/net/transport"
	"github.com/yndnr/snapmesh-go/internal/server/config"
	"github.com/yndnr/snapmesh-go/internal/server/discovery"
	"github.com/yndnr/snapmesh-go/internal/server/httpserver"
	"github.com/yndnr/snapmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/snapmesh-go/internal/sim"
	"github.com/yndnr/snapmesh-go/internal/storage/recorder"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "snapmesh-server",
		Usage:   "run a snapmesh host or client node",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"SNAPMESH_CONFIG"}},
			&cli.StringFlag{Name: "role", Usage: "host or client"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "UDP game port (0 picks a free one)"},
			&cli.StringFlag{Name: "server", Usage: "host address a client connects to (host[:port])"},
			&cli.StringSliceFlag{Name: "peer", Usage: "client address a host sends to from the first tick (repeatable)"},
			&cli.StringFlag{Name: "admin", Usage: "admin API listen address"},
			&cli.BoolFlag{Name: "discovery", Usage: "enable LAN host discovery"},
			&cli.StringSliceFlag{Name: "join", Usage: "discovery seed address (repeatable)"},
			&cli.BoolFlag{Name: "record", Usage: "record emitted snapshots (host only)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Action: serve,
	}
}

// flagOverrides maps the flags given on the command line onto config keys.
// Unset flags are left out so they do not mask the file or environment.
func flagOverrides(c *cli.Context) map[string]any {
	keys := []struct {
		flag, key string
	}{
		{"role", "session.role"},
		{"port", "session.bind_port"},
		{"server", "session.server"},
		{"peer", "session.peers"},
		{"admin", "admin.addr"},
		{"discovery", "discovery.enabled"},
		{"join", "discovery.seeds"},
		{"record", "record.enabled"},
		{"log-level", "log.level"},
	}

	out := make(map[string]any)
	for _, k := range keys {
		if !c.IsSet(k.flag) {
			continue
		}
		switch k.flag {
		case "port":
			out[k.key] = c.Int(k.flag)
		case "peer", "join":
			out[k.key] = c.StringSlice(k.flag)
		case "discovery", "record":
			out[k.key] = c.Bool(k.flag)
		default:
			out[k.key] = c.String(k.flag)
		}
	}
	if _, ok := out["discovery.seeds"]; ok {
		out["discovery.enabled"] = true
	}
	return out
}

// loadConfig layers defaults, file, environment and overrides, then
// verifies the result.
func loadConfig(path string, overrides map[string]any) (*config.ServerConfig, *confloader.Loader, error) {
	opts := []confloader.Option{
		confloader.WithListKeys("session.peers", "discovery.seeds", "admin.allow_list"),
	}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if len(overrides) > 0 {
		opts = append(opts, confloader.WithOverrides(overrides))
	}
	loader := confloader.NewLoader(opts...)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

func serve(c *cli.Context) error {
	cfg, loader, err := loadConfig(c.String("config"), flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting snapmesh-server",
		"version", info.Version,
		"commit", info.Commit,
		"role", cfg.Session.Role,
		"config", loader.FilePath())

	sh := shutdown.NewHandler(shutdownTimeout, slogger)
	ctx := sh.Context(c.Context)

	n, err := buildNode(ctx, cfg, sh, log)
	if err != nil {
		if hookErr := sh.Run(); hookErr != nil {
			log.Error("cleanup after failed start", "error", hookErr)
		}
		return err
	}

	if path := loader.FilePath(); path != "" {
		if err := watchConfig(path, loader, sh, log); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}

	runErr := n.run(ctx)
	if runErr != nil {
		log.Error("session failed", "error", runErr)
	}
	sh.Trigger()

	hookErr := sh.Run()
	if runErr == nil && hookErr == nil {
		log.Info("snapmesh-server stopped")
	}
	return errors.Join(runErr, hookErr)
}

// node is a fully wired snapmesh-server process.
type node struct {
	cfg       *config.ServerConfig
	log       logger.Logger
	transport *transport.Transport
	session   *service.Session
	discovery *discovery.Discovery
}

// buildNode opens every component and registers its shutdown hook. Hooks
// run in reverse, so the transport closes last.
func buildNode(ctx context.Context, cfg *config.ServerConfig, sh *shutdown.Handler, log logger.Logger) (*node, error) {
	slogger := log.Slog()
	reg := metric.NewRegistry()
	n := &node{cfg: cfg, log: log}

	tcfg := config.ToTransportConfig(cfg)
	tcfg.Logger = slogger
	tcfg.Metrics = reg
	n.transport = transport.New(tcfg)
	if err := n.transport.Open(uint16(cfg.Session.BindPort)); err != nil {
		return nil, fmt.Errorf("open transport: %w", err)
	}
	sh.OnShutdown("transport", func(context.Context) error { return n.transport.Close() })

	isHost := cfg.Session.Role == string(service.RoleHost)
	world := sim.NewWorld(cfg.World.Sectors, cfg.World.Lines)
	if isHost {
		sim.Populate(world, cfg.World.DemoEntities, cfg.World.Seed)
	}

	deps := service.Deps{Logger: slogger, Metrics: reg}
	if isHost && cfg.Record.Enabled {
		rec, err := recorder.Open(config.ToRecorderConfig(cfg), slogger)
		if err != nil {
			return nil, fmt.Errorf("open recorder: %w", err)
		}
		rec.RegisterMetrics(reg.Registerer())
		sh.OnShutdown("recorder", func(context.Context) error { return rec.Close() })
		deps.Recorder = rec
	}

	if cfg.Discovery.Enabled {
		dcfg, err := config.ToDiscoveryConfig(cfg, n.transport.LocalAddr().Port(), slogger)
		if err != nil {
			return nil, err
		}
		d, err := discovery.New(dcfg)
		if err != nil {
			return nil, fmt.Errorf("start discovery: %w", err)
		}
		d.OnLeave(func(node string) {
			log.Info("discovery member left", "node", node)
		})
		sh.OnShutdown("discovery", func(ctx context.Context) error {
			timeout := time.Second
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
				timeout = time.Until(dl)
			}
			leaveErr := d.Leave(timeout)
			return errors.Join(leaveErr, d.Shutdown())
		})
		n.discovery = d
	}

	scfg, err := config.ToSessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	n.session, err = service.NewSession(scfg, world, n.transport, deps)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := metric.NewCollector(cfg.Session.Role, n.session.Stats).Register(reg); err != nil {
		return nil, fmt.Errorf("register session metrics: %w", err)
	}

	if cfg.Admin.Enabled {
		api := handler.Deps{Session: n.session, Channels: n.transport, Logger: slogger}
		if n.discovery != nil {
			api.Discovery = n.discovery
		}
		srv := httpserver.New(cfg.Admin.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Deps:      api,
			Metrics:   reg.Handler(),
			AllowList: cfg.Admin.AllowList,
			RateLimit: cfg.Admin.RateLimit,
		}))
		if err := srv.Listen(); err != nil {
			return nil, fmt.Errorf("admin listen: %w", err)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				log.Error("admin server failed", "error", err)
			}
		}()
		sh.OnShutdown("admin", srv.Shutdown)
		log.Info("admin API listening", "addr", srv.Addr())
	}

	log.Info("node ready",
		"session_id", n.session.ID().String(),
		"udp", n.transport.LocalAddr().String(),
		"discovery", n.discovery != nil,
		"recording", deps.Recorder != nil)
	return n, nil
}

// run connects a client to its host, then drives the session until ctx
// is cancelled.
func (n *node) run(ctx context.Context) error {
	if n.cfg.Session.Role == string(service.RoleClient) {
		if err := n.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return n.session.Run(ctx)
}

// connect binds the server channel to session.server, or to the first
// host discovery reports when no server is configured.
func (n *node) connect(ctx context.Context) error {
	server := n.cfg.Session.Server
	if server == "" {
		n.log.Info("waiting for a host via discovery")
		host, err := n.discovery.WaitHost(ctx)
		if err != nil {
			return fmt.Errorf("discover host: %w", err)
		}
		n.log.Info("host discovered", "node", host.Node, "addr", host.GameAddr.String())
		server = host.GameAddr.String()
	}
	if err := n.transport.ConnectToServer(ctx, server); err != nil {
		return fmt.Errorf("connect to %s: %w", server, err)
	}
	return nil
}

// watchConfig reloads the file on change and applies log.level. Other
// settings need a restart.
func watchConfig(path string, loader *confloader.Loader, sh *shutdown.Handler, log logger.Logger) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}

	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Error("reloaded config rejected", "error", err)
			return
		}
		if next.Log.Level != logger.GetLevel() {
			logger.SetLevel(next.Log.Level)
			log.Info("log level changed", "level", next.Log.Level)
		}
	})
	w.StartAsync()
	sh.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
	return nil
}
