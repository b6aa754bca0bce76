package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saop-labs/saop/internal/branding"
	"github.com/saop-labs/saop/internal/config"
	"github.com/saop-labs/saop/internal/manifest"
	"github.com/saop-labs/saop/internal/platform"
	"github.com/saop-labs/saop/internal/runtime"
	"github.com/saop-labs/saop/internal/scaffold"
)

var (
	checkRuntime  bool
	checkProject  bool
	checkConfig   bool
	checkManifest string
	doctorFix     bool
)

func init() {
	doctorCmd.Flags().BoolVar(&checkRuntime, "check-runtime", false, "Verify poetry, python3 and git are available")
	doctorCmd.Flags().BoolVar(&checkProject, "check-project", false, "Verify the agent project layout")
	doctorCmd.Flags().BoolVar(&checkConfig, "check-config", false, "Validate "+branding.ProjectFile()+" against its schema")
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Validate an agent manifest file at the given path")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Restrict .env to owner read/write")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the agent project and toolchain",
	Long:  `Run diagnostic checks on the tools saop drives and on the current agent project.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		anyFlag := checkRuntime || checkProject || checkConfig || checkManifest != ""

		dir, err := workDir()
		if err != nil {
			return err
		}

		// If no specific flag, run all checks.
		if !anyFlag {
			runRuntimeCheck(w, newRunner(cmd))
			_, settings, err := loadSettings()
			if err != nil {
				fmt.Fprintf(w, "  [FAIL] %v\n", err)
				return nil
			}
			runProjectCheck(w, dir, settings)
			return nil
		}

		if checkRuntime {
			runRuntimeCheck(w, newRunner(cmd))
		}
		if checkProject {
			_, settings, err := loadSettings()
			if err != nil {
				return err
			}
			runProjectCheck(w, dir, settings)
		}
		if checkConfig {
			if err := runConfigCheck(w, config.ProjectFilePath(dir)); err != nil {
				return err
			}
		}
		if checkManifest != "" {
			if err := runManifestCheck(w, checkManifest); err != nil {
				return err
			}
		}
		return nil
	},
}

func runRuntimeCheck(w io.Writer, r runtime.Runner) {
	fmt.Fprintln(w, "Runtime check:")
	checkBinary(w, r, "poetry")
	checkBinary(w, r, "python3")
	checkBinary(w, r, "git")
}

func checkBinary(w io.Writer, r runtime.Runner, name string) {
	path, err := r.LookPath(name)
	if err != nil {
		fmt.Fprintf(w, "  [MISS] %s not found\n", name)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s found at %s\n", name, path)
}

func runProjectCheck(w io.Writer, dir string, settings *config.Settings) {
	fmt.Fprintln(w, "Project check:")

	projectFile := config.ProjectFilePath(dir)
	if _, err := os.Stat(projectFile); err != nil {
		fmt.Fprintf(w, "  [INFO] No %s; using defaults\n", branding.ProjectFile())
	} else {
		reportValidation(w, manifest.KindProject, projectFile)
	}

	agentFile := filepath.Join(dir, scaffold.AgentFile)
	if _, err := os.Stat(agentFile); err != nil {
		fmt.Fprintf(w, "  [WARN] %s not found\n", scaffold.AgentFile)
	} else {
		reportValidation(w, manifest.KindAgent, agentFile)
	}

	script := absPath(dir, settings.Runner.ClientScript)
	if _, err := os.Stat(script); err != nil {
		fmt.Fprintf(w, "  [WARN] test client %s not found (saop test will fail)\n", settings.Runner.ClientScript)
	} else {
		fmt.Fprintf(w, "  [ OK ] test client %s present\n", settings.Runner.ClientScript)
	}

	if settings.Setup.DotEnv != "" {
		checkDotEnv(w, absPath(dir, settings.Setup.DotEnv))
	}
}

func checkDotEnv(w io.Writer, path string) {
	name := filepath.Base(path)
	ok, mode, err := platform.PermMatches(path, platform.FilePermSecure)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "  [WARN] %s not found\n", name)
		return
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", name, err)
		return
	}
	if ok {
		fmt.Fprintf(w, "  [ OK ] %s permissions %o\n", name, mode)
		return
	}
	if doctorFix {
		if err := platform.Chmod(path, platform.FilePermSecure); err != nil {
			fmt.Fprintf(w, "  [FAIL] %s: %v\n", name, err)
			return
		}
		fmt.Fprintf(w, "  [ OK ] %s permissions fixed (%o -> %o)\n", name, mode, platform.FilePermSecure)
		return
	}
	fmt.Fprintf(w, "  [WARN] %s permissions %o, want %o (run with --fix)\n", name, mode, platform.FilePermSecure)
}

// reportValidation prints one status line for a schema check and reports
// whether the file is valid.
func reportValidation(w io.Writer, kind manifest.Kind, path string) bool {
	name := filepath.Base(path)
	result, err := manifest.ValidateFile(kind, path)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return false
	}
	if result.Valid {
		fmt.Fprintf(w, "  [ OK ] %s is valid\n", name)
		return true
	}
	fmt.Fprintf(w, "  [FAIL] %s: %d validation issue(s):\n", name, len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "    - %s\n", issue)
	}
	return false
}

func runConfigCheck(w io.Writer, path string) error {
	fmt.Fprintf(w, "Config validation: %s\n", path)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  [FAIL] %s not found\n", filepath.Base(path))
		return fmt.Errorf("%s not found", path)
	}
	if !reportValidation(w, manifest.KindProject, path) {
		return fmt.Errorf("%s is invalid", path)
	}
	return nil
}

func runManifestCheck(w io.Writer, path string) error {
	fmt.Fprintf(w, "Manifest validation: %s\n", path)
	if !reportValidation(w, manifest.KindAgent, path) {
		return fmt.Errorf("manifest %s is invalid", path)
	}
	agent, err := manifest.ParseAgent(path)
	if err == nil {
		fmt.Fprintf(w, "  Agent %s (v%s), model %s/%s\n", agent.Name, agent.Version, agent.Model.Provider, agent.Model.Name)
	}
	return nil
}
