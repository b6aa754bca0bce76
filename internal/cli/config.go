package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/saop-labs/saop/internal/config"
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write user settings stored at ~/.saop/config.yaml. Keys use the
same sections as saop.yaml (compile, setup, runner), so a value set here
applies to every project that does not override it.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Example: `  saop config set runner.base_url http://localhost:8080
  saop config set setup.shell /bin/zsh`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		fmt.Fprintln(cmd.OutOrStdout(), config.Get(args[0]))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective project settings",
	Long:  `Print the settings for the current project after layering defaults, the user config, saop.yaml and SAOP_* environment variables.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadSettings()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(effectiveSettings(settings))
		if err != nil {
			return fmt.Errorf("marshaling settings: %w", err)
		}
		if settings.Source != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", settings.Source)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

// effectiveSettings mirrors the saop.yaml layout for display.
func effectiveSettings(s *config.Settings) map[string]any {
	return map[string]any{
		"compile": map[string]any{
			"output": s.Compile.Output,
			"files":  s.Compile.Files,
		},
		"setup": map[string]any{
			"manager":     s.Setup.Manager,
			"min_version": s.Setup.MinVersion,
			"groups":      s.Setup.Groups,
			"shell":       s.Setup.Shell,
			"dotenv":      s.Setup.DotEnv,
		},
		"runner": map[string]any{
			"base_url":        s.Runner.BaseURL,
			"default_agent":   s.Runner.DefaultAgent,
			"client_script":   s.Runner.ClientScript,
			"interpreter":     s.Runner.Interpreter,
			"required_module": s.Runner.RequiredModule,
		},
	}
}
