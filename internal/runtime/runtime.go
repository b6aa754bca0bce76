package runtime

import (
	"context"
	"os/exec"
)

// Command describes one external program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the inherited environment when non-nil.
	Env []string
	// Interactive connects the child to the terminal's stdin.
	Interactive bool
	// Quiet suppresses streaming; output is only captured.
	Quiet bool
}

// Output captures the result of a finished command.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes commands and resolves executables on PATH.
type Runner interface {
	// Run executes cmd and waits for it. A non-zero exit is reported through
	// Output.ExitCode, not as an error; errors mean the program could not be
	// started or was interrupted.
	Run(ctx context.Context, cmd Command) (*Output, error)
	// LookPath resolves an executable name the way exec.LookPath does.
	LookPath(name string) (string, error)
}

// LookPath is the default executable resolver.
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
