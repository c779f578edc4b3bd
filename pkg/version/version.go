// Package version holds the build version, overridable at link time with
// -ldflags "-X github.com/semcs/ck/pkg/version.Version=...".
package version

// Version is the current ck version.
var Version = "0.4.0"
