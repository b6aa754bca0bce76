package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/saop-labs/saop/internal/a2aprobe"
)

var (
	pingURL     string
	pingTimeout time.Duration
)

func init() {
	pingCmd.Flags().StringVar(&pingURL, "url", "", "Agent base URL (default: runner.base_url)")
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", a2aprobe.DefaultTimeout, "Overall timeout")
	rootCmd.AddCommand(pingCmd)
}

var pingCmd = &cobra.Command{
	Use:   "ping [message]",
	Short: "Send one message to a running agent over A2A",
	Long: `Resolve the agent card published by a running agent and send it a single
text message, printing the reply. No Python is involved.

Examples:
  saop ping
  saop ping "What can you do?" --url http://localhost:9999`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadSettings()
		if err != nil {
			return err
		}
		baseURL := settings.Runner.BaseURL
		if pingURL != "" {
			baseURL = pingURL
		}
		text := a2aprobe.DefaultMessage
		if len(args) == 1 {
			text = args[0]
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Sending: %s\n", text)

		p := &a2aprobe.Prober{Timeout: pingTimeout, Logger: logger}
		reply, err := p.Ping(cmd.Context(), baseURL, text)
		if err != nil {
			return err
		}

		agent := reply.Agent
		if agent == "" {
			agent = "Agent"
		}
		body := reply.Text
		if body == "" {
			body = color.YellowString("(no text in reply)")
		}
		fmt.Fprintf(w, "%s: %s\n", color.CyanString(agent), body)
		if reply.TaskID != "" {
			fmt.Fprintf(w, "Task %s: %s\n", reply.TaskID, reply.State)
		}
		fmt.Fprintf(w, "Round trip: %s\n", reply.Elapsed.Round(time.Millisecond))
		return nil
	},
}
