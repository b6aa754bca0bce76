// Package logging builds the zap logger shared by all commands. Diagnostic
// logs go to stderr; user-facing console output is written by the commands
// themselves and never passes through the logger.
package logging
