// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/dashfeed/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/dashfeed/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"log/slog"
	"runtime/debug"
)

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") " + goVersion()
}

// UserAgent is sent on REST requests and WebSocket handshakes.
func UserAgent() string {
	return "dashfeed/" + Version
}

// Attr groups the build info for startup logs.
func Attr() slog.Attr {
	return slog.Group("build",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("go", goVersion()),
	)
}

func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}
