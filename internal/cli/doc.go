// Package cli defines the Cobra command tree for the saop CLI. Each file
// in this package registers one top-level command (scaffold, compile, setup,
// test, etc.) with the root command. Command implementations delegate to
// internal packages for business logic and only handle flag parsing,
// configuration layering, and console output.
package cli
