package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/saop-labs/saop/internal/envsetup"
)

var (
	setupNoShell  bool
	setupPrintEnv bool
	setupShell    string
)

func init() {
	setupCmd.Flags().BoolVar(&setupNoShell, "no-shell", false, "Prepare the environment without starting a shell")
	setupCmd.Flags().BoolVar(&setupPrintEnv, "print-env", false, "Print the activated environment (secrets redacted)")
	setupCmd.Flags().StringVar(&setupShell, "shell", "", "Shell to start (default: setup.shell or $SHELL)")
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install dependencies and open an activated shell",
	Long: `Install the project's dependencies with the configured manager (Poetry by
default, including the dev group), locate its virtual environment, and start
an interactive shell with that environment active. Exit the shell to return.

Examples:
  saop setup
  saop setup --no-shell
  saop setup --print-env --no-shell`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, settings, err := loadSettings()
		if err != nil {
			return err
		}
		cfg := settings.Setup
		if setupShell != "" {
			cfg.Shell = setupShell
		}

		s := &envsetup.Setup{
			Config:  cfg,
			Dir:     dir,
			Runner:  newRunner(cmd),
			Console: cmd.OutOrStdout(),
			Logger:  logger,
		}

		res, err := s.Prepare(cmd.Context())
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}

		if setupPrintEnv {
			printDerivedEnv(cmd, res)
		}
		if setupNoShell {
			fmt.Fprintf(cmd.OutOrStdout(), "Environment ready. Activate it with:\n  source %s\n", res.Activation)
			return nil
		}

		code, err := s.Launch(cmd.Context(), res)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		return exitWith(code)
	},
}

// printDerivedEnv prints the variables setup adds or changes.
func printDerivedEnv(cmd *cobra.Command, res *envsetup.Result) {
	base := make(map[string]bool)
	for _, e := range os.Environ() {
		base[e] = true
	}
	var changed []string
	for _, e := range res.Env {
		if !base[e] {
			changed = append(changed, e)
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Environment:")
	lines := envsetup.RedactEnv(changed)
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
