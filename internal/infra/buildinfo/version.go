package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build information.
func Get() Info {
	infoOnce.Do(func() {
		info = resolve(Version, Commit, BuildTime, readBuildInfo())
	})
	return info
}

func readBuildInfo() *debug.BuildInfo {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return bi
}

// resolve fills fields left at their defaults from bi.
func resolve(version, commit, built string, bi *debug.BuildInfo) Info {
	out := Info{Version: version, Commit: commit, BuildTime: built, GoVersion: runtime.Version()}
	if bi == nil {
		return out
	}
	if out.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		out.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "unknown" {
				out.Commit = shorten(s.Value)
			}
		case "vcs.time":
			if out.BuildTime == "unknown" {
				out.BuildTime = s.Value
			}
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	if bi.GoVersion != "" {
		out.GoVersion = bi.GoVersion
	}
	return out
}

func shorten(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String returns a formatted version string.
func String() string {
	i := Get()
	s := i.Version + " (" + i.Commit
	if i.Modified {
		s += "+dirty"
	}
	return s + ") built at " + i.BuildTime + " with " + i.GoVersion
}
