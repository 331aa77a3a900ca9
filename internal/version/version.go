// Package version holds build metadata, set through ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/blueprintdocs/internal/version.Version=v1.0.0"
package version

import "fmt"

var Version = "unknown"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String is the --version output.
func String() string {
	return fmt.Sprintf("blueprintdocs %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
