// Package version provides build version information for the
// orchestrator binaries, set at build time via ldflags.
package version

// Build information variables - set by the release pipeline via
// ldflags (e.g. -X github.com/forgeworks/sdo/internal/version.Version=v1.2.3).
//
//nolint:gochecknoglobals // must be package-level vars for ldflags injection
var (
	// Version is the semantic version ("dev" for development builds).
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// Short returns the one-line version string cobra's --version flag prints.
func Short() string {
	if Commit == "none" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
