// Package buildinfo carries the version stamped into the blockforge binary.
//
// The variables are overridden at link time:
//
//	go build -ldflags "-X github.com/blockforge/blockforge/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/blockforge/blockforge/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/blockforge/blockforge/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/blockforge
package buildinfo

import "fmt"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the abbreviated git revision.
	Commit = "none"

	// Date is the UTC build time.
	Date = "unknown"
)

// String returns a one-line summary, e.g. "v0.3.0 (abc1234, 2026-01-02T03:04:05Z)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}

// Template returns the cobra --version template.
func Template() string {
	return "{{.Name}} " + String() + "\n"
}
