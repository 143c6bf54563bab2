// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/freva-org/databrowser/internal/version.Version=v1.2.0"
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for logs.
func String() string {
	return fmt.Sprintf("databrowser %s (commit %s, built %s)", Version, Commit, Date)
}
