// Package buildinfo holds the version stamped into npmgen at link time:
//
//	go build -ldflags "-X github.com/matzehuels/npmgen/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/npmgen/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/npmgen/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Bazel builds set the same variables through x_defs on the go_binary.
package buildinfo

import "fmt"

var (
	// Version is the release tag, "dev" for unstamped builds.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the --version template for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
