// Package envsetup bootstraps a project's isolated Python environment. It
// checks that the dependency manager is installed and recent enough, runs
// the install including development groups, resolves the managed
// environment and its activation script, and finally starts an
// interactive shell whose environment has that virtualenv activated.
// Each step fails fast with its own sentinel error; nothing is retried or
// rolled back.
package envsetup
