package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/saop-labs/saop/internal/envsetup"
	"github.com/saop-labs/saop/internal/platform"
	"github.com/saop-labs/saop/internal/runtime"
	"github.com/saop-labs/saop/internal/runtime/runtimetest"
	"github.com/saop-labs/saop/internal/testrunner"
)

// executeCommand runs the root command with args against an isolated user
// config. A non-nil runner replaces the real process runner.
func executeCommand(t *testing.T, runner runtime.Runner, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("SAOP_HOME", t.TempDir())
	resetFlags(rootCmd)

	if runner != nil {
		orig := newRunner
		newRunner = func(*cobra.Command) runtime.Runner { return runner }
		t.Cleanup(func() { newRunner = orig })
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so commands can run more
// than once in the same process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeProjectFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"exit error", &ExitError{Code: 3}, 3},
		{"wrapped exit error", &ExitError{Code: 1, Err: testrunner.ErrMissingMessage}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}

	if exitWith(0) != nil {
		t.Error("exitWith(0) should be nil")
	}
	if ExitCode(exitWith(2)) != 2 {
		t.Error("exitWith(2) should carry code 2")
	}
}

func TestCompileCommandPositional(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "a.txt", "hello")

	out, err := executeCommand(t, nil, "compile", "-C", dir, "a.txt", "missing.txt")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if !strings.Contains(out, "Adding a.txt...") || !strings.Contains(out, "Warning: missing.txt not found") {
		t.Errorf("console output = %q", out)
	}
	if !strings.Contains(out, "Compiled 2 files (1 missing, 5 bytes)") {
		t.Errorf("summary line missing: %q", out)
	}

	report, err := os.ReadFile(filepath.Join(dir, "backend_files_compiled.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# FILE: a.txt\n", "hello", "# FILE: missing.txt (NOT FOUND)", "# Total files processed: 2"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestCompileCommandFromProjectFile(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "saop.yaml", "compile:\n  output: review.txt\n  files:\n    - app.py\n")
	writeProjectFile(t, dir, "app.py", "print('hi')\n")

	if _, err := executeCommand(t, nil, "compile", "-C", dir); err != nil {
		t.Fatalf("compile error: %v", err)
	}
	report, err := os.ReadFile(filepath.Join(dir, "review.txt"))
	if err != nil {
		t.Fatalf("configured output not written: %v", err)
	}
	if !strings.Contains(string(report), "print('hi')") {
		t.Errorf("report = %q", report)
	}
}

func TestCompileCommandManifestFlag(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "files.txt", "# sources\nb.txt\n")
	writeProjectFile(t, dir, "b.txt", "bee")

	if _, err := executeCommand(t, nil, "compile", "-C", dir, "--manifest", "files.txt", "-o", "out.txt"); err != nil {
		t.Fatalf("compile error: %v", err)
	}
	report, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(report), "# FILE: b.txt\n") || !strings.Contains(string(report), "# Total files processed: 1") {
		t.Errorf("report = %q", report)
	}
}

func TestTestCommandSingleWithoutMessage(t *testing.T) {
	fake := runtimetest.New("python3")
	_, err := executeCommand(t, fake, "test", "-C", t.TempDir(), "single")

	if ExitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", ExitCode(err))
	}
	if !errors.Is(err, testrunner.ErrMissingMessage) {
		t.Errorf("err = %v, want ErrMissingMessage", err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("client invoked: %q", fake.Lines())
	}
}

func TestTestCommandUnknownMode(t *testing.T) {
	fake := runtimetest.New("python3")
	out, err := executeCommand(t, fake, "test", "-C", t.TempDir(), "bogus")

	if ExitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", ExitCode(err))
	}
	if err == nil || !strings.Contains(err.Error(), "unknown option 'bogus'") {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("usage not shown: %q", out)
	}
}

func TestTestCommandDefaultsToFull(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "tests/test_client.py", "")
	fake := runtimetest.New("python3").
		On("/usr/bin/python3 tests/test_client.py --full --url http://override:1", runtime.Output{ExitCode: 4}, nil)

	_, err := executeCommand(t, fake, "test", "-C", dir, "--url", "http://override:1")
	if ExitCode(err) != 4 {
		t.Errorf("exit code = %d, want the client's 4 (err %v)", ExitCode(err), err)
	}
	lines := fake.Lines()
	if len(lines) == 0 || lines[len(lines)-1] != "/usr/bin/python3 tests/test_client.py --full --url http://override:1" {
		t.Errorf("calls = %q", lines)
	}
}

func TestSetupCommandManagerMissing(t *testing.T) {
	fake := runtimetest.New()
	_, err := executeCommand(t, fake, "setup", "-C", t.TempDir())

	if ExitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", ExitCode(err))
	}
	if !errors.Is(err, envsetup.ErrManagerNotFound) {
		t.Errorf("err = %v, want ErrManagerNotFound", err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("commands ran without a manager: %q", fake.Lines())
	}
}

func TestSetupCommandNoShell(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "venv")
	writeProjectFile(t, envPath, "bin/activate", "")
	fake := runtimetest.New("poetry").
		On("/usr/bin/poetry --version", runtime.Output{Stdout: "Poetry (version 1.8.3)"}, nil).
		On("/usr/bin/poetry env info --path", runtime.Output{Stdout: envPath}, nil)

	out, err := executeCommand(t, fake, "setup", "-C", t.TempDir(), "--no-shell")
	if err != nil {
		t.Fatalf("setup error: %v", err)
	}
	if !strings.Contains(out, "source "+platform.ActivationScript(envPath)) {
		t.Errorf("activation hint missing: %q", out)
	}
	for _, c := range fake.Calls {
		if c.Interactive {
			t.Errorf("shell started despite --no-shell: %s", runtimetest.Line(c))
		}
	}
}

func TestScaffoldCommand(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "billing-agent")

	out, err := executeCommand(t, nil, "scaffold", "billing-agent", "-C", t.TempDir(), "--output-dir", outDir)
	if err != nil {
		t.Fatalf("scaffold error: %v", err)
	}
	if !strings.Contains(out, "Created new agent directory") || !strings.Contains(out, "cd "+outDir) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "saop.yaml")); err != nil {
		t.Errorf("saop.yaml not generated: %v", err)
	}

	_, err = executeCommand(t, nil, "scaffold", "billing-agent", "-C", t.TempDir(), "--output-dir", outDir)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second scaffold err = %v, want already exists", err)
	}
}

func TestScaffoldCommandRejectsBadName(t *testing.T) {
	_, err := executeCommand(t, nil, "scaffold", "../escape", "-C", t.TempDir())
	if err == nil {
		t.Fatal("expected error for invalid name")
	}
}

func TestDoctorCheckConfig(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "saop.yaml", "runner:\n  base_url: localhost\n")

	out, err := executeCommand(t, nil, "doctor", "-C", dir, "--check-config")
	if err == nil {
		t.Fatal("expected error for invalid saop.yaml")
	}
	if !strings.Contains(out, "[FAIL]") || !strings.Contains(out, "/runner/base_url") {
		t.Errorf("output = %q", out)
	}
}

func TestDoctorFixesDotEnvPermissions(t *testing.T) {
	if os.PathSeparator != '/' {
		t.Skip("permission bits not enforced")
	}
	dir := t.TempDir()
	writeProjectFile(t, dir, ".env", "API_KEY=x\n")

	out, err := executeCommand(t, runtimetest.New("poetry", "python3", "git"), "doctor", "-C", dir, "--check-project", "--fix")
	if err != nil {
		t.Fatalf("doctor error: %v", err)
	}
	if !strings.Contains(out, ".env permissions fixed") {
		t.Errorf("output = %q", out)
	}
	ok, _, err := platform.PermMatches(filepath.Join(dir, ".env"), platform.FilePermSecure)
	if err != nil || !ok {
		t.Errorf(".env not restricted: ok=%v err=%v", ok, err)
	}
}

func TestEnvShowRedacts(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, ".env", "OPENAI_API_KEY=sk-secret-value\nLOG_LEVEL=debug\n")

	out, err := executeCommand(t, nil, "env", "show", "-C", dir)
	if err != nil {
		t.Fatalf("env show error: %v", err)
	}
	if !strings.Contains(out, "OPENAI_API_KEY=sk-s***") || !strings.Contains(out, "LOG_LEVEL=debug") {
		t.Errorf("output = %q", out)
	}

	out, err = executeCommand(t, nil, "env", "show", "-C", dir, "--no-redact")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "OPENAI_API_KEY=sk-secret-value") {
		t.Errorf("--no-redact output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	buildVersion = "1.2.3"
	out, err := executeCommand(t, nil, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "1.2.3" {
		t.Errorf("version --short = %q", out)
	}
}

func TestUnknownLogFormat(t *testing.T) {
	_, err := executeCommand(t, nil, "version", "--log-format", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown log format") {
		t.Errorf("err = %v, want unknown log format", err)
	}
}
