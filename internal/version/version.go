// Package version exposes the build version reported by the service.
package version

// Version is overridden at build time via
// -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"
