package cli

import (
	"github.com/spf13/cobra"

	"github.com/saop-labs/saop/internal/testrunner"
)

var (
	testBaseURL string
	testAgent   string
	testScript  string
	testPython  string
)

func init() {
	testCmd.Flags().StringVar(&testBaseURL, "url", "", "Agent base URL (default: runner.base_url)")
	testCmd.Flags().StringVar(&testAgent, "default-agent", "", "Agent used by single mode when none is given (default: runner.default_agent)")
	testCmd.Flags().StringVar(&testScript, "client-script", "", "Test client script (default: runner.client_script)")
	testCmd.Flags().StringVar(&testPython, "python", "", "Python interpreter (default: runner.interpreter)")
	rootCmd.AddCommand(testCmd)
}

var testCmd = &cobra.Command{
	Use:   "test [quick|single|full|help] [message] [agent]",
	Short: "Run the A2A test client against a running agent",
	Long: `Run the project's A2A test client. Modes:

  quick                       Send one quick test message
  single "<message>" [agent]  Send a message to a specific agent
  full                        Run the full client test suite (default)
  help                        Show the runner's usage

The client script must exist and its required module is installed with pip
when missing. The client's exit status becomes the command's exit status.`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, settings, err := loadSettings()
		if err != nil {
			return err
		}

		cfg := settings.Runner
		if testBaseURL != "" {
			cfg.BaseURL = testBaseURL
		}
		if testAgent != "" {
			cfg.DefaultAgent = testAgent
		}
		if testScript != "" {
			cfg.ClientScript = testScript
		}
		if testPython != "" {
			cfg.Interpreter = testPython
		}

		r := &testrunner.Runner{
			Config:  cfg,
			Dir:     dir,
			Exec:    newRunner(cmd),
			Console: cmd.OutOrStdout(),
			Logger:  logger,
		}
		code, err := r.Run(cmd.Context(), args)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		return exitWith(code)
	},
}
