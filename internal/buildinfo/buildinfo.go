// Package buildinfo carries the identity of the versionstamp binary itself.
// The variables are injected at link time, e.g.
//
//	go build -ldflags "-X github.com/terrpan/versionstamp/internal/buildinfo.Version=v0.2.0 \
//	  -X github.com/terrpan/versionstamp/internal/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/terrpan/versionstamp/internal/buildinfo.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	// Version is the release of the tool ("dev" for local builds).
	Version = "dev"

	// Commit is the short git commit the binary was built from.
	Commit = "unknown"

	// BuildTime is the RFC 3339 build timestamp.
	BuildTime = "unknown"
)

// String renders the build identity for `versionstamp --version`.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime)
}
