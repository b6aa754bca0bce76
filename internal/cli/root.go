package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/branding"
	"github.com/saop-labs/saop/internal/config"
	"github.com/saop-labs/saop/internal/logging"
	"github.com/saop-labs/saop/internal/runtime"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	verbose    bool
	logFormat  string
	projectDir string

	logger = zap.NewNop()
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "Log format: console or json")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", "", "Project directory (default: current directory)")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` scaffolds agent projects and drives their development loop:
compiling source files into a single review document, bootstrapping the
Python environment, and running the A2A test client.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Options{
			Verbose: verbose,
			Format:  logFormat,
			Output:  cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		logger = l
		logger.Debug("command starting", zap.String("command", cmd.CommandPath()), zap.Strings("args", args))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command with build info injected via ldflags and
// reports the error, if any, on stderr.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "%s %v\n", color.RedString("Error:"), err)
		}
	}
	return err
}

// newRunner returns the process runner commands use. Tests replace it.
var newRunner = func(cmd *cobra.Command) runtime.Runner {
	return &runtime.ExecRunner{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Stdin:  cmd.InOrStdin(),
		Logger: logger,
	}
}

// workDir resolves --project-dir, defaulting to the working directory.
func workDir() (string, error) {
	if projectDir != "" {
		info, err := os.Stat(projectDir)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("project directory %q not found", projectDir)
		}
		return projectDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return dir, nil
}

// loadSettings returns the layered project settings for the project dir.
func loadSettings() (string, *config.Settings, error) {
	dir, err := workDir()
	if err != nil {
		return "", nil, err
	}
	settings, err := config.LoadProject(dir)
	if err != nil {
		return "", nil, err
	}
	if settings.Source != "" {
		logger.Debug("project settings loaded", zap.String("file", settings.Source))
	}
	return dir, settings, nil
}
