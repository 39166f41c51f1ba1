// Package version provides version information for the tagsync CLI.
package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags during build.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// String returns the version with build metadata, e.g.
// "v1.2.0 (abc1234, 2026-01-02) linux/amd64".
func String() string {
	s := Version
	switch {
	case Commit != "" && Date != "":
		s += fmt.Sprintf(" (%s, %s)", Commit, Date)
	case Commit != "":
		s += fmt.Sprintf(" (%s)", Commit)
	}
	return s + " " + runtime.GOOS + "/" + runtime.GOARCH
}
