// Package version carries the build information of the qrscan binary.
package version

import "fmt"

// Build-time variables set by ldflags, for example
// -X github.com/MeKo-Tech/qrscan/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// Short returns the version and commit, e.g. "v1.2.0 (abc1234)".
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}
