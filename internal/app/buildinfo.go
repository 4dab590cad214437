package app

import "fmt"

// Build information stamped with -ldflags by the Makefile and Dockerfile.
var (
    BuildVersion = "0.0.0-dev"
    BuildCommit  = "unknown"
    BuildDate    = "unknown"
)

// VersionString is what -version prints.
func VersionString() string {
    return fmt.Sprintf("altscout %s (%s, %s)", BuildVersion, BuildCommit, BuildDate)
}
