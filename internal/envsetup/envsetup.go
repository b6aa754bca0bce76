package envsetup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/logging"
	"github.com/saop-labs/saop/internal/platform"
	"github.com/saop-labs/saop/internal/runtime"
)

// Sentinel errors, one per failure site.
var (
	ErrManagerNotFound   = errors.New("dependency manager not found")
	ErrManagerTooOld     = errors.New("dependency manager is too old")
	ErrInstallFailed     = errors.New("dependency installation failed")
	ErrEnvPathUnresolved = errors.New("could not determine the virtual environment path")
	ErrActivationMissing = errors.New("activation script not found")
)

// Config is the setup section of saop.yaml.
type Config struct {
	Manager    string   `mapstructure:"manager"`
	MinVersion string   `mapstructure:"min_version"`
	Groups     []string `mapstructure:"groups"`
	// Shell overrides the interactive shell; empty means the user's shell.
	Shell string `mapstructure:"shell"`
	// DotEnv is merged into the shell environment when present.
	DotEnv string `mapstructure:"dotenv"`
}

// DefaultConfig returns the built-in setup settings. Poetry 1.2 is the
// first release that understands dependency groups.
func DefaultConfig() Config {
	return Config{
		Manager:    "poetry",
		MinVersion: "1.2.0",
		Groups:     []string{"dev"},
		DotEnv:     ".env",
	}
}

// Result describes a prepared environment.
type Result struct {
	ManagerPath    string
	ManagerVersion string
	EnvPath        string
	Activation     string
	// Env is the complete environment for the interactive shell.
	Env []string
}

// Setup runs the bootstrap sequence for the project in Dir.
type Setup struct {
	Config  Config
	Dir     string
	Runner  runtime.Runner
	Console io.Writer
	Logger  *zap.Logger
	// Environ returns the base environment; defaults to os.Environ.
	Environ func() []string
}

// Prepare performs every step up to, but not including, launching the
// shell: locate the manager, check its version, install dependencies,
// resolve the environment and its activation script, and derive the
// shell environment.
func (s *Setup) Prepare(ctx context.Context) (*Result, error) {
	log := logging.OrNop(s.Logger)
	console := s.console()
	manager := s.Config.Manager
	if manager == "" {
		manager = DefaultConfig().Manager
	}

	managerPath, err := s.Runner.LookPath(manager)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not on PATH; install it first (see https://python-poetry.org/docs/#installation)", ErrManagerNotFound, manager)
	}
	log.Debug("dependency manager found", zap.String("path", managerPath))

	res := &Result{ManagerPath: managerPath}

	version, err := s.checkVersion(ctx, managerPath, manager)
	if err != nil {
		return nil, err
	}
	res.ManagerVersion = version

	fmt.Fprintf(console, "Installing dependencies with %s...\n", manager)
	out, err := s.Runner.Run(ctx, runtime.Command{
		Name: managerPath,
		Args: installArgs(s.Config.Groups),
		Dir:  s.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s install exited with code %d", ErrInstallFailed, manager, out.ExitCode)
	}

	envPath, err := s.resolveEnvPath(ctx, managerPath, manager)
	if err != nil {
		return nil, err
	}
	res.EnvPath = envPath

	activation := platform.ActivationScript(envPath)
	if info, err := os.Stat(activation); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: expected %s", ErrActivationMissing, activation)
	}
	res.Activation = activation
	log.Debug("activation script found", zap.String("path", activation))

	env, err := s.deriveEnv(envPath)
	if err != nil {
		return nil, err
	}
	res.Env = env
	return res, nil
}

// Launch starts the interactive shell with the prepared environment and
// waits for it to exit, returning the shell's exit code.
func (s *Setup) Launch(ctx context.Context, res *Result) (int, error) {
	shell := s.Config.Shell
	if shell == "" {
		shell = platform.DefaultShell()
	}

	fmt.Fprintf(s.console(), "Virtual environment activated: %s\n", res.EnvPath)
	fmt.Fprintf(s.console(), "Starting %s (exit the shell to return)...\n", shell)

	out, err := s.Runner.Run(ctx, runtime.Command{
		Name:        shell,
		Args:        platform.ShellArgs(shell),
		Dir:         s.Dir,
		Env:         res.Env,
		Interactive: true,
	})
	if err != nil {
		return 1, fmt.Errorf("starting shell %s: %w", shell, err)
	}
	return out.ExitCode, nil
}

func (s *Setup) checkVersion(ctx context.Context, managerPath, manager string) (string, error) {
	log := logging.OrNop(s.Logger)

	out, err := s.Runner.Run(ctx, runtime.Command{
		Name:  managerPath,
		Args:  []string{"--version"},
		Dir:   s.Dir,
		Quiet: true,
	})
	if err != nil || out.ExitCode != 0 {
		log.Warn("could not read dependency manager version", zap.String("manager", manager))
		return "", nil
	}

	version := ParseVersion(out.Stdout)
	if version == "" {
		log.Warn("unrecognized version output", zap.String("output", strings.TrimSpace(out.Stdout)))
		return "", nil
	}

	if s.Config.MinVersion == "" {
		return version, nil
	}
	ok, err := AtLeast(version, s.Config.MinVersion)
	if err != nil {
		return version, fmt.Errorf("checking %s version: %w", manager, err)
	}
	if !ok {
		return version, fmt.Errorf("%w: %s %s is installed, %s or newer is required", ErrManagerTooOld, manager, version, s.Config.MinVersion)
	}
	return version, nil
}

func (s *Setup) resolveEnvPath(ctx context.Context, managerPath, manager string) (string, error) {
	out, err := s.Runner.Run(ctx, runtime.Command{
		Name:  managerPath,
		Args:  []string{"env", "info", "--path"},
		Dir:   s.Dir,
		Quiet: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnvPathUnresolved, err)
	}
	envPath := strings.TrimSpace(out.Stdout)
	if out.ExitCode != 0 || envPath == "" {
		return "", fmt.Errorf("%w: '%s env info --path' returned nothing", ErrEnvPathUnresolved, manager)
	}
	return envPath, nil
}

// deriveEnv builds the activated environment: VIRTUAL_ENV set, the env's
// bin directory first on PATH, PYTHONHOME cleared, and project .env values
// added without overriding anything already set.
func (s *Setup) deriveEnv(envPath string) ([]string, error) {
	environ := os.Environ
	if s.Environ != nil {
		environ = s.Environ
	}
	env := append([]string(nil), environ()...)

	binDir := platform.VenvBinDir(envPath)
	path, _ := runtime.LookupEnv(env, "PATH")
	if path == "" {
		path = binDir
	} else {
		path = binDir + string(os.PathListSeparator) + path
	}

	env = runtime.SetEnv(env, "VIRTUAL_ENV", envPath)
	env = runtime.SetEnv(env, "PATH", path)
	env = runtime.UnsetEnv(env, "PYTHONHOME")

	if s.Config.DotEnv != "" {
		dotenv := s.Config.DotEnv
		if !filepath.IsAbs(dotenv) {
			dotenv = filepath.Join(s.Dir, dotenv)
		}
		if _, err := os.Stat(dotenv); err == nil {
			vars, err := godotenv.Read(dotenv)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", dotenv, err)
			}
			env = runtime.MergeMissing(env, vars)
		}
	}
	return env, nil
}

func (s *Setup) console() io.Writer {
	if s.Console == nil {
		return io.Discard
	}
	return s.Console
}

func installArgs(groups []string) []string {
	args := []string{"install"}
	var names []string
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			names = append(names, g)
		}
	}
	if len(names) > 0 {
		args = append(args, "--with", strings.Join(names, ","))
	}
	return args
}

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?(?:[-+.][0-9A-Za-z.-]+)?)`)

// ParseVersion extracts the version number from "--version" output such as
// "Poetry (version 1.8.3)".
func ParseVersion(output string) string {
	return versionPattern.FindString(output)
}

// AtLeast reports whether version satisfies the minimum. A leading "v" is
// tolerated on either side.
func AtLeast(version, minimum string) (bool, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return false, fmt.Errorf("parsing version %q: %w", version, err)
	}
	m, err := semver.NewVersion(strings.TrimPrefix(minimum, "v"))
	if err != nil {
		return false, fmt.Errorf("parsing minimum version %q: %w", minimum, err)
	}
	return !v.LessThan(m), nil
}
