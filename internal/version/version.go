// Package version holds build-time version information set via ldflags.
package version

// Build-time variables set via -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "unknown"
)
