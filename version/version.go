// Package version holds build metadata injected at link time.
package version

import "runtime"

// Set via ldflags at build time, e.g.
//
//	go build -ldflags "-X github.com/jackzampolin/folio/version.GitRelease=v0.2.0"
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = runtime.Version()
)
