package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saop-labs/saop/internal/envsetup"
	"github.com/saop-labs/saop/internal/platform"
	"github.com/saop-labs/saop/internal/runtime"
)

var envShowNoRedact bool

func init() {
	envShowCmd.Flags().BoolVar(&envShowNoRedact, "no-redact", false, "Show values without redaction")

	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envEditCmd)
	envCmd.AddCommand(envShowCmd)
	rootCmd.AddCommand(envCmd)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the project's .env files",
	Long:  `Inspect and edit the .env files that saop setup merges into the activated shell.`,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the project's .env files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		files, err := listEnvFiles(dir)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(w, "No .env files found. Run 'saop scaffold' to create a project with one.")
			return nil
		}
		for _, f := range files {
			ok, mode, _ := platform.PermMatches(filepath.Join(dir, f), platform.FilePermSecure)
			note := ""
			if !ok {
				note = fmt.Sprintf("  (mode %o, want %o)", mode, platform.FilePermSecure)
			}
			fmt.Fprintf(w, "  %s%s\n", f, note)
		}
		return nil
	},
}

// Template comments for newly created env files.
const envFileTemplate = `# Environment variables for %s
# Add KEY=VALUE pairs below. Lines starting with # are comments.
`

var envEditCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Open an env file in your editor",
	Long: `Open a .env file in your preferred editor ($EDITOR, defaults to vi). The
file is created when missing and kept readable by the owner only.

  saop env edit              # opens .env (or setup.dotenv)
  saop env edit .env.local`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := envTarget(args)
		if err != nil {
			return err
		}

		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			content := fmt.Sprintf(envFileTemplate, filepath.Base(filepath.Dir(path)))
			if err := os.WriteFile(path, []byte(content), platform.FilePermSecure); err != nil {
				return fmt.Errorf("creating env file %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		}

		editor := platform.Editor()
		out, err := newRunner(cmd).Run(cmd.Context(), runtime.Command{
			Name:        editor,
			Args:        []string{path},
			Interactive: true,
		})
		if err != nil {
			return fmt.Errorf("running editor %s: %w", editor, err)
		}
		if out.ExitCode != 0 {
			return fmt.Errorf("editor %s exited with code %d", editor, out.ExitCode)
		}

		// Ensure secure permissions after editing.
		return platform.Chmod(path, platform.FilePermSecure)
	},
}

var envShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print env file contents (redacted by default)",
	Long: `Print the variables of a .env file with sensitive values redacted.

  saop env show              # shows .env (or setup.dotenv)
  saop env show .env.local

Use --no-redact to show actual values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := envTarget(args)
		if err != nil {
			return err
		}

		vars, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("reading env file %s: %w", path, err)
		}

		w := cmd.OutOrStdout()
		if len(vars) == 0 {
			fmt.Fprintln(w, "(empty)")
			return nil
		}

		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(w, "# %s\n", path)
		for _, k := range keys {
			value := vars[k]
			if !envShowNoRedact {
				value = envsetup.RedactValue(k, value)
			}
			fmt.Fprintf(w, "%s=%s\n", k, value)
		}
		return nil
	},
}

// envTarget resolves the env file named in args, or the configured one.
func envTarget(args []string) (string, error) {
	dir, settings, err := loadSettings()
	if err != nil {
		return "", err
	}
	name := settings.Setup.DotEnv
	if len(args) == 1 {
		name = args[0]
	}
	if name == "" {
		name = ".env"
	}
	return absPath(dir, name), nil
}

// listEnvFiles returns .env and .env.* files directly inside dir.
func listEnvFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if name == ".env" || strings.HasPrefix(name, ".env.") {
			files = append(files, name)
		}
	}
	return files, nil
}
