// Package runtime runs the external programs the CLI delegates to: the
// dependency manager, the Python interpreter, the test client and the
// interactive shell. The Runner interface lets callers swap in a fake in
// tests; ExecRunner is the os/exec implementation.
package runtime
