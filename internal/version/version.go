// Package version holds build information for the tracker binaries.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

// String returns the build version for -version output.
func String() string {
	return Format(Version, Commit)
}

// Format normalises a release tag to vMAJOR.MINOR.PATCH. Development builds,
// whose version is not a semantic version, are identified by commit.
func Format(version, commit string) string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return commit
	}
	return fmt.Sprintf("v%s", v.String())
}
