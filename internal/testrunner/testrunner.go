package testrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/branding"
	"github.com/saop-labs/saop/internal/logging"
	"github.com/saop-labs/saop/internal/runtime"
)

// Mode selects the client behavior.
type Mode string

const (
	ModeQuick  Mode = "quick"
	ModeSingle Mode = "single"
	ModeFull   Mode = "full"
	ModeHelp   Mode = "help"
)

// DefaultMode is used when no mode argument is given.
const DefaultMode = ModeFull

var (
	ErrUnknownMode         = errors.New("unknown option")
	ErrMissingMessage      = errors.New("single mode requires a message")
	ErrClientScriptMissing = errors.New("test client script not found")
	ErrInterpreterNotFound = errors.New("python interpreter not found")
	ErrModuleInstallFailed = errors.New("installing required module failed")
)

// Config is the runner section of saop.yaml.
type Config struct {
	// BaseURL is the agent server the client talks to.
	BaseURL      string `mapstructure:"base_url"`
	DefaultAgent string `mapstructure:"default_agent"`
	// ClientScript is relative to the project directory.
	ClientScript   string `mapstructure:"client_script"`
	Interpreter    string `mapstructure:"interpreter"`
	RequiredModule string `mapstructure:"required_module"`
}

// DefaultConfig returns the built-in runner settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:9999",
		DefaultAgent:   "general_support",
		ClientScript:   filepath.Join("tests", "test_client.py"),
		Interpreter:    "python3",
		RequiredModule: "requests",
	}
}

// withDefaults fills empty fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.DefaultAgent == "" {
		c.DefaultAgent = d.DefaultAgent
	}
	if c.ClientScript == "" {
		c.ClientScript = d.ClientScript
	}
	if c.Interpreter == "" {
		c.Interpreter = d.Interpreter
	}
	if c.RequiredModule == "" {
		c.RequiredModule = d.RequiredModule
	}
	return c
}

// Invocation is a resolved dispatch decision.
type Invocation struct {
	Mode Mode
	// ClientArgs follow the script path on the interpreter command line.
	// Empty for ModeHelp.
	ClientArgs []string
}

// Plan maps positional arguments ([mode] [message] [agent]) onto a client
// invocation without touching the filesystem or running anything.
func Plan(cfg Config, args []string) (*Invocation, error) {
	cfg = cfg.withDefaults()

	mode := DefaultMode
	if len(args) > 0 && args[0] != "" {
		mode = Mode(args[0])
	}

	switch mode {
	case ModeQuick:
		return &Invocation{Mode: mode, ClientArgs: []string{"--quick", "--url", cfg.BaseURL}}, nil
	case ModeSingle:
		if len(args) < 2 || args[1] == "" {
			return nil, ErrMissingMessage
		}
		agent := cfg.DefaultAgent
		if len(args) > 2 && args[2] != "" {
			agent = args[2]
		}
		return &Invocation{Mode: mode, ClientArgs: []string{"--message", args[1], "--agent", agent, "--url", cfg.BaseURL}}, nil
	case ModeFull:
		return &Invocation{Mode: mode, ClientArgs: []string{"--full", "--url", cfg.BaseURL}}, nil
	case ModeHelp:
		return &Invocation{Mode: mode}, nil
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnknownMode, mode)
	}
}

// Usage returns the help text for the configured runner.
func Usage(cfg Config) string {
	cfg = cfg.withDefaults()
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s test [mode] [message] [agent]\n\n", branding.CLIName())
	b.WriteString("Modes:\n")
	b.WriteString("  quick                       Send one quick test message\n")
	fmt.Fprintf(&b, "  single \"<message>\" [agent]  Send a message to an agent (default agent: %s)\n", cfg.DefaultAgent)
	b.WriteString("  full                        Run the full client test suite (default)\n")
	b.WriteString("  help                        Show this help\n\n")
	fmt.Fprintf(&b, "Agent server: %s\n", cfg.BaseURL)
	fmt.Fprintf(&b, "Client script: %s\n", cfg.ClientScript)
	return b.String()
}

// IsUsageError reports whether err stems from bad arguments, in which case
// the caller should show Usage.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUnknownMode) || errors.Is(err, ErrMissingMessage)
}

// Runner checks prerequisites and runs the test client.
type Runner struct {
	Config Config
	// Dir is the project directory.
	Dir     string
	Exec    runtime.Runner
	Console io.Writer
	Logger  *zap.Logger
}

// Run dispatches args and returns the exit code to report. Usage errors
// and prerequisite failures return exit code 1 with an error; otherwise
// the client's own exit code is returned.
func (r *Runner) Run(ctx context.Context, args []string) (int, error) {
	log := logging.OrNop(r.Logger)
	cfg := r.Config.withDefaults()
	console := r.Console
	if console == nil {
		console = io.Discard
	}

	inv, err := Plan(cfg, args)
	if err != nil {
		if IsUsageError(err) {
			fmt.Fprint(console, Usage(cfg))
		}
		return 1, err
	}
	if err := r.checkClientScript(cfg); err != nil {
		return 1, err
	}
	if inv.Mode == ModeHelp {
		fmt.Fprint(console, Usage(cfg))
		return 0, nil
	}

	interp, err := r.checkPrerequisites(ctx, cfg)
	if err != nil {
		return 1, err
	}

	log.Debug("running test client",
		zap.String("mode", string(inv.Mode)),
		zap.String("script", cfg.ClientScript),
		zap.Strings("args", inv.ClientArgs),
	)
	out, err := r.Exec.Run(ctx, runtime.Command{
		Name:        interp,
		Args:        append([]string{cfg.ClientScript}, inv.ClientArgs...),
		Dir:         r.Dir,
		Interactive: true,
	})
	if err != nil {
		return 1, fmt.Errorf("running %s: %w", cfg.ClientScript, err)
	}
	return out.ExitCode, nil
}

// checkClientScript fails when the client script is absent. It runs for
// every mode, help included.
func (r *Runner) checkClientScript(cfg Config) error {
	script := cfg.ClientScript
	if !filepath.IsAbs(script) {
		script = filepath.Join(r.Dir, script)
	}
	if info, err := os.Stat(script); err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s (run this command from the agent project root)", ErrClientScriptMissing, cfg.ClientScript)
	}
	return nil
}

// checkPrerequisites verifies the required module imports, installing it
// with pip when it does not. It returns the resolved interpreter path.
func (r *Runner) checkPrerequisites(ctx context.Context, cfg Config) (string, error) {
	log := logging.OrNop(r.Logger)

	interp, err := r.Exec.LookPath(cfg.Interpreter)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not on PATH", ErrInterpreterNotFound, cfg.Interpreter)
	}

	out, err := r.Exec.Run(ctx, runtime.Command{
		Name:  interp,
		Args:  []string{"-c", "import " + cfg.RequiredModule},
		Dir:   r.Dir,
		Quiet: true,
	})
	if err == nil && out.ExitCode == 0 {
		log.Debug("required module available", zap.String("module", cfg.RequiredModule))
		return interp, nil
	}

	if r.Console != nil {
		fmt.Fprintf(r.Console, "Installing %s...\n", cfg.RequiredModule)
	}
	out, err = r.Exec.Run(ctx, runtime.Command{
		Name: interp,
		Args: []string{"-m", "pip", "install", cfg.RequiredModule},
		Dir:  r.Dir,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModuleInstallFailed, err)
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("%w: pip exited with code %d", ErrModuleInstallFailed, out.ExitCode)
	}
	return interp, nil
}
