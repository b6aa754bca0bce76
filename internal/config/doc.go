// Package config manages user-level settings stored at ~/.saop/config.yaml
// and the per-project saop.yaml. Project settings are layered: built-in
// defaults, then the user config, then saop.yaml, then SAOP_* environment
// variables. Command-line flags are applied on top by the cli package.
package config
