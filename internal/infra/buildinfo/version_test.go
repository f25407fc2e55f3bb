package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	for name, v := range map[string]string{
		"Version":   info.Version,
		"Commit":    info.Commit,
		"BuildTime": info.BuildTime,
		"GoVersion": info.GoVersion,
	} {
		if v == "" {
			t.Errorf("%s should not be empty", name)
		}
	}
}

func TestResolve(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.4",
		Main:      debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	tests := []struct {
		name                   string
		version, commit, built string
		bi                     *debug.BuildInfo
		want                   Info
	}{
		{
			name:    "defaults filled from build info",
			version: "dev", commit: "unknown", built: "unknown", bi: bi,
			want: Info{Version: "v0.3.0", Commit: "0123456789ab", BuildTime: "2026-01-02T03:04:05Z", GoVersion: "go1.24.4", Modified: true},
		},
		{
			name:    "ldflags win",
			version: "v1.0.0", commit: "abc", built: "today", bi: bi,
			want: Info{Version: "v1.0.0", Commit: "abc", BuildTime: "today", GoVersion: "go1.24.4", Modified: true},
		},
		{
			name:    "devel module version ignored",
			version: "dev", commit: "unknown", built: "unknown",
			bi:   &debug.BuildInfo{GoVersion: "go1.24.4", Main: debug.Module{Version: "(devel)"}},
			want: Info{Version: "dev", Commit: "unknown", BuildTime: "unknown", GoVersion: "go1.24.4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolve(tt.version, tt.commit, tt.built, tt.bi); got != tt.want {
				t.Errorf("resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_NoBuildInfo(t *testing.T) {
	got := resolve("dev", "unknown", "unknown", nil)
	if got.Version != "dev" || got.GoVersion == "" {
		t.Errorf("resolve(nil) = %+v", got)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.Contains(s, Get().Version) || !strings.Contains(s, "built at") {
		t.Errorf("String() = %q", s)
	}
}
