package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/scaffold"
)

var (
	scaffoldTemplateDir string
	scaffoldOutputDir   string
)

func init() {
	scaffoldCmd.Flags().StringVar(&scaffoldTemplateDir, "template-dir", "", "Template directory (default: built-in base_agent)")
	scaffoldCmd.Flags().StringVar(&scaffoldOutputDir, "output-dir", "", "Output directory (default: ./<agent_name>)")
	rootCmd.AddCommand(scaffoldCmd)
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold <agent_name>",
	Short: "Create a new agent from a template",
	Long: `Create a new agent project from the built-in base_agent template or a
template directory of your own.

Files ending in .tmpl are rendered with the agent's name, ID and runner
settings; everything else is copied as is.

Examples:
  saop scaffold billing-agent
  saop scaffold support --template-dir ./templates/custom --output-dir ./agents/support`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := scaffold.ValidateName(name); err != nil {
			return err
		}

		_, settings, err := loadSettings()
		if err != nil {
			return err
		}

		src, err := scaffold.Source(scaffoldTemplateDir)
		if err != nil {
			return err
		}

		outDir := scaffoldOutputDir
		if outDir == "" {
			outDir = filepath.Join(".", name)
		}

		data := scaffold.NewData(name, settings.Runner.BaseURL, settings.Runner.DefaultAgent)
		logger.Debug("scaffolding agent",
			zap.String("name", name),
			zap.String("id", data.AgentID),
			zap.String("output", outDir),
		)

		result, err := scaffold.Generate(src, data, outDir)
		if err != nil {
			return err
		}

		printScaffoldResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func printScaffoldResult(w io.Writer, result *scaffold.Result) {
	fmt.Fprintf(w, "Created new agent directory '%s' from template.\n", result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.YellowString("Warnings:"))
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", color.GreenString("New agent scaffolded successfully!"))
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "  1. cd %s\n", result.OutputDir)
	fmt.Fprintln(w, "  2. Fill in the placeholder values in .env and the YAML files")
	fmt.Fprintln(w, "  3. Run 'saop setup' to install dependencies")
}
