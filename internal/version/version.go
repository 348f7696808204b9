// Package version carries the build version reported by the health route.
package version

// Version is overridden at build time with
// -ldflags "-X github.com/eigerco/homestore/internal/version.Version=..."
var Version = "0.1.0"
