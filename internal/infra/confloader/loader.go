package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "SNAPMESH_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	listKeys  map[string]bool
	overrides []map[string]any
	loaded    bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithListKeys names keys whose environment values are comma-separated
// lists, e.g. "session.peers".
func WithListKeys(keys ...string) Option {
	return func(l *Loader) {
		for _, k := range keys {
			l.listKeys[k] = true
		}
	}
}

// WithOverrides adds a map applied after the environment. Keys use dots.
func WithOverrides(m map[string]any) Option {
	return func(l *Loader) {
		if len(m) > 0 {
			l.overrides = append(l.overrides, m)
		}
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		listKeys:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string { return l.filePath }

// Load reads every source and unmarshals into target. Fields of target
// that no source sets keep their current values, so target should be
// populated with defaults first.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	for _, m := range l.overrides {
		if err := l.LoadMap(m); err != nil {
			return err
		}
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	l.loaded = true
	return nil
}

// Reload discards everything loaded so far and loads again into target.
func (l *Loader) Reload(target any) error {
	l.k = koanf.New(".")
	l.loaded = false
	return l.Load(target)
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads configuration from environment variables. The first
// underscore after the prefix separates section from key:
// SNAPMESH_SESSION_TICK_RATE=70 sets session.tick_rate.
func (l *Loader) LoadEnv() error {
	provider := env.ProviderWithValue(l.envPrefix, ".", func(name, value string) (string, any) {
		key := envKey(name, l.envPrefix)
		if key == "" {
			return "", nil
		}
		if l.listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func envKey(name, prefix string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadMap loads configuration from a map.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into target using koanf
// tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// GetString returns a string value by dotted key.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt returns an int value by dotted key.
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// IsLoaded reports whether Load has succeeded.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// Keys returns every loaded key.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}
