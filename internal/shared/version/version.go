// Package version carries the build version, set with
// -ldflags "-X benchtop/internal/shared/version.Version=...".
package version

var Version = "dev"
