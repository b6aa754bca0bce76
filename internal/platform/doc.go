// Package platform isolates the operating-system differences the CLI cares
// about: Unix permission bits (no-ops on Windows), the layout of Python
// virtual environments, and the interactive shell to launch.
package platform
