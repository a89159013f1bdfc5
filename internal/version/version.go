// Package version contains information on the current version of the
// compiler. It is split from the main program for easy use from both
// cmd/dslc and server/.
package version

// Current is the string representing the current version of the compiler,
// as printed by `dslc --version` and reported by the server's info endpoint.
// Nothing compares it against dslconfig.Config.MinToolchainVersion.
const Current = "v0.1.0"
