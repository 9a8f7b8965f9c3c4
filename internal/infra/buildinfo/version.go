// Package buildinfo provides build-time version information.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/tradeguard/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit and GoVersion fall back to the module build info when not set.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

var fallback = sync.OnceValue(func() Info {
	info := Info{Commit: "unknown", BuildTime: "unknown", GoVersion: "unknown"}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.BuildTime = s.Value
		}
	}
	return info
})

// Get returns the build information.
func Get() Info {
	fb := fallback()
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime, GoVersion: GoVersion}
	if info.Commit == "unknown" {
		info.Commit = fb.Commit
	}
	if info.BuildTime == "unknown" {
		info.BuildTime = fb.BuildTime
	}
	if info.GoVersion == "unknown" {
		info.GoVersion = fb.GoVersion
	}
	return info
}

// String returns a formatted version string.
func String() string {
	i := Get()
	return i.Version + " (" + i.Commit + ") built at " + i.BuildTime
}

// UserAgent is sent by the CLI on every request.
func UserAgent() string {
	return "tradeguard-cli/" + Version
}
