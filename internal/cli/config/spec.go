package config

// CLIConfig is the configuration for snapmesh-cli.
type CLIConfig struct {
	DefaultServer string `yaml:"default_server"`
	DefaultOutput string `yaml:"default_output"` // table, json, yaml
	RecordDir     string `yaml:"record_dir"`

	// Profiles maps a name to a node's admin address.
	Profiles map[string]Profile `yaml:"profiles"`

	// Current selects a profile; empty means DefaultServer.
	Current string `yaml:"current"`
}

// Profile is one saved node.
type Profile struct {
	Server string `yaml:"server"`
	Note   string `yaml:"note,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "localhost:5080",
		DefaultOutput: "table",
		RecordDir:     "/var/lib/snapmesh-server/record",
		Profiles:      make(map[string]Profile),
	}
}

// Server returns the admin address of the current profile, or
// DefaultServer when no profile is selected.
func (c *CLIConfig) Server() string {
	if p, ok := c.Profiles[c.Current]; ok && p.Server != "" {
		return p.Server
	}
	return c.DefaultServer
}
