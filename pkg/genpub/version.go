// Package genpub holds module-wide identifiers for the GenPub tools.
package genpub

// Version is the release version reported by the genpub CLI.
const Version = "0.1.0"

// ModulePath is the Go module path of this repository.
const ModulePath = "github.com/mesh-intelligence/genpub"
