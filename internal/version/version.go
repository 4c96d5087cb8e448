// Package version holds build metadata injected with -ldflags.
package version

import "fmt"

var (
	// Version is the current library version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build metadata on one line, as shown on the admin page.
func String() string {
	return fmt.Sprintf("wits0 %s (%s, built %s)", Version, GitSHA, BuildTime)
}
