// Package runtimetest provides a scriptable fake runtime.Runner.
package runtimetest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/saop-labs/saop/internal/runtime"
)

// Response is the scripted result for a matching command.
type Response struct {
	Output runtime.Output
	Err    error
}

// Fake records every command and answers from a table keyed by the command
// line ("name arg1 arg2"). Unmatched commands succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	Calls     []runtime.Command
	Responses map[string]Response
	// Paths maps executable names to resolved paths. Names not present are
	// reported as not found.
	Paths map[string]string
}

// New returns a Fake that resolves the given executables to /usr/bin/<name>.
func New(executables ...string) *Fake {
	f := &Fake{
		Responses: make(map[string]Response),
		Paths:     make(map[string]string),
	}
	for _, e := range executables {
		f.Paths[e] = "/usr/bin/" + e
	}
	return f
}

// On scripts the response for a command line.
func (f *Fake) On(line string, out runtime.Output, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[line] = Response{Output: out, Err: err}
	return f
}

// Run records cmd and returns the scripted response.
func (f *Fake) Run(_ context.Context, cmd runtime.Command) (*runtime.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)
	resp, ok := f.Responses[Line(cmd)]
	if !ok {
		return &runtime.Output{}, nil
	}
	out := resp.Output
	return &out, resp.Err
}

// LookPath resolves name from Paths.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.Paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: %w", name, exec.ErrNotFound)
}

// Lines returns the recorded command lines in call order.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = Line(c)
	}
	return lines
}

// Line renders cmd as "name arg1 arg2".
func Line(cmd runtime.Command) string {
	return strings.TrimSpace(cmd.Name + " " + strings.Join(cmd.Args, " "))
}
