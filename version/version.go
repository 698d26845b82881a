// Package version is set at build time with
// -ldflags "-X github.com/battlesnakeio/chainsnake/version.Version=...".
package version

// Version of the binary.
var Version = "dev"
