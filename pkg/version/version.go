// Package version holds build version information, set at link time.
package version

import "runtime"

var (
	// BuildVersion is the semantic version of the build
	BuildVersion = "0.1.0"

	// BuildCommit is the git commit the binary was built from
	BuildCommit = "unknown"

	// BuildDate is the date the binary was built
	BuildDate = "unknown"
)

// Info returns version information as a map.
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"commit":     BuildCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}
