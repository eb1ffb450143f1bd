// Package version holds build-time version information, set via ldflags.
package version

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/Wyatt-Stanke/ctf/internal/version.Version=v1.2.3".
var Version = "dev"
