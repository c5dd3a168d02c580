// Package version exposes the build metadata stamped into the binary.
package version

import (
	"fmt"
	"runtime"
)

// Overridden at link time, e.g.
// -ldflags="-X github.com/skillgate/skillgate/internal/version.Version=v1.0.0".
var (
	// Version is the release tag, "dev" for untagged builds.
	Version = "dev"

	// Commit is the git revision the binary was built from.
	Commit = "unknown"

	// BuildDate is when the binary was built, RFC3339.
	BuildDate = "unknown"
)

// Short returns just the version string.
func Short() string {
	return Version
}

// Info renders the one-line form used by `skillgate version`.
func Info() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("skillgate %s (commit: %s, built: %s, go: %s)",
		Version, commit, BuildDate, runtime.Version())
}

// Full renders the multi-line form used with --verbose.
func Full() string {
	return fmt.Sprintf(`skillgate %s
  Commit:     %s
  Built:      %s
  Go version: %s
  OS/Arch:    %s/%s`,
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
