// Package version carries build metadata stamped at link time.
package version

import (
	"fmt"
	"runtime"
)

// These variables are intended to be set at build time via -ldflags.
// Defaults are useful for local development builds.
var (
	// Version is the semantic version of the build, e.g. v0.1.0. Defaults to "dev".
	Version = "dev"
	// Commit is the short git commit hash. Defaults to ""
	Commit = ""
	// Go is the Go toolchain version used for the build.
	Go = runtime.Version()
)

// Info returns version metadata suitable for logging.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"go":      Go,
	}
}

// UserAgent returns the User-Agent sent by netlayer sessions, prefixed with
// the application's product token when one is given.
func UserAgent(product string) string {
	ua := fmt.Sprintf("netlayer/%s (%s; %s/%s)", Version, Go, runtime.GOOS, runtime.GOARCH)
	if product == "" {
		return ua
	}
	return product + " " + ua
}
