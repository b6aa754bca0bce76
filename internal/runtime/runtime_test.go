package runtime

import (
	"bytes"
	"context"
	"os/exec"
	goruntime "runtime"
	"strings"
	"testing"
)

func requireShell(t *testing.T) string {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available, skipping")
	}
	return sh
}

func TestExecRunner_CapturesAndStreams(t *testing.T) {
	sh := requireShell(t)

	var stdout, stderr bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &stderr}

	out, err := r.Run(context.Background(), Command{
		Name: sh,
		Args: []string{"-c", "echo hello; echo oops 1>&2"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", out.ExitCode)
	}
	if strings.TrimSpace(out.Stdout) != "hello" {
		t.Errorf("captured stdout = %q", out.Stdout)
	}
	if strings.TrimSpace(stdout.String()) != "hello" {
		t.Errorf("streamed stdout = %q", stdout.String())
	}
	if strings.TrimSpace(stderr.String()) != "oops" {
		t.Errorf("streamed stderr = %q", stderr.String())
	}
}

func TestExecRunner_QuietOnlyCaptures(t *testing.T) {
	sh := requireShell(t)

	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &stdout}

	out, err := r.Run(context.Background(), Command{Name: sh, Args: []string{"-c", "echo quiet"}, Quiet: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("quiet command streamed %q", stdout.String())
	}
	if strings.TrimSpace(out.Stdout) != "quiet" {
		t.Errorf("captured stdout = %q", out.Stdout)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	sh := requireShell(t)

	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	out, err := r.Run(context.Background(), Command{Name: sh, Args: []string{"-c", "exit 3"}})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error, got %v", err)
	}
	if out.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", out.ExitCode)
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	if _, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"}); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestExecRunner_Env(t *testing.T) {
	sh := requireShell(t)

	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	out, err := r.Run(context.Background(), Command{
		Name: sh,
		Args: []string{"-c", "printf %s \"$SAOP_TEST_VALUE\""},
		Env:  []string{"SAOP_TEST_VALUE=derived"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Stdout != "derived" {
		t.Errorf("Stdout = %q, want %q", out.Stdout, "derived")
	}
}

func TestSetEnv(t *testing.T) {
	env := []string{"A=1", "B=2"}
	env = SetEnv(env, "A", "9")
	env = SetEnv(env, "C", "3")

	if v, _ := LookupEnv(env, "A"); v != "9" {
		t.Errorf("A = %q, want 9", v)
	}
	if v, _ := LookupEnv(env, "C"); v != "3" {
		t.Errorf("C = %q, want 3", v)
	}
	if len(env) != 3 {
		t.Errorf("len(env) = %d, want 3", len(env))
	}
}

func TestUnsetEnv(t *testing.T) {
	env := UnsetEnv([]string{"PYTHONHOME=/x", "PATH=/bin", "PYTHONHOME=/y"}, "PYTHONHOME")
	if len(env) != 1 || env[0] != "PATH=/bin" {
		t.Errorf("UnsetEnv = %v, want [PATH=/bin]", env)
	}
}

func TestMergeMissing(t *testing.T) {
	env := MergeMissing([]string{"API_KEY=from-shell"}, map[string]string{
		"API_KEY": "from-dotenv",
		"MODEL":   "gpt",
	})
	if v, _ := LookupEnv(env, "API_KEY"); v != "from-shell" {
		t.Errorf("API_KEY = %q, existing value must win", v)
	}
	if v, _ := LookupEnv(env, "MODEL"); v != "gpt" {
		t.Errorf("MODEL = %q, want gpt", v)
	}
}
