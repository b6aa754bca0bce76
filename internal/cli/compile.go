package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/saop-labs/saop/internal/compiler"
	"github.com/saop-labs/saop/internal/manifest"
)

var (
	compileOutput   string
	compileManifest string
	compileWatch    bool
)

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "Report file (default: compile.output or "+compiler.DefaultOutput+")")
	compileCmd.Flags().StringVarP(&compileManifest, "manifest", "m", "", "File list: YAML with a 'files' key, or one path per line")
	compileCmd.Flags().BoolVarP(&compileWatch, "watch", "w", false, "Recompile when a listed file changes")
	rootCmd.AddCommand(compileCmd)
}

var compileCmd = &cobra.Command{
	Use:   "compile [file...]",
	Short: "Concatenate project files into a single report",
	Long: `Concatenate an ordered list of project files into one text report, each
file under a bannered "# FILE:" header. Missing files are noted in the
report and never fail the run.

The file list comes from, in order of precedence: the positional
arguments, --manifest, or compile.files in saop.yaml.

Examples:
  saop compile
  saop compile app.py agent.yaml -o review.txt
  saop compile --manifest files.txt --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, settings, err := loadSettings()
		if err != nil {
			return err
		}

		output := settings.Compile.Output
		if compileOutput != "" {
			output = compileOutput
		}

		load := fileListLoader(dir, args, compileManifest, settings.Compile.Files)
		files, err := load()
		if err != nil {
			return err
		}

		c := &compiler.Compiler{
			Dir:     dir,
			Output:  output,
			Console: cmd.OutOrStdout(),
			Logger:  logger,
		}

		if !compileWatch {
			summary, err := c.Compile(files)
			if err != nil {
				return err
			}
			printCompileSummary(cmd.OutOrStdout(), summary)
			return nil
		}

		manifestPath := ""
		if len(args) == 0 && compileManifest != "" {
			manifestPath = absPath(dir, compileManifest)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes (Ctrl+C to stop)...")
		w := &compiler.Watcher{
			Compiler:     c,
			Load:         load,
			ManifestPath: manifestPath,
			Logger:       logger,
			OnCompile: func(s *compiler.Summary, err error) {
				if err != nil {
					logger.Error("compilation failed", zap.Error(err))
					return
				}
				printCompileSummary(cmd.OutOrStdout(), s)
			},
		}
		return w.Run(ctx)
	},
}

// fileListLoader picks the manifest source: positional args, then the
// --manifest file, then the configured list.
func fileListLoader(dir string, args []string, manifestFile string, configured []string) func() ([]string, error) {
	switch {
	case len(args) > 0:
		return func() ([]string, error) { return args, nil }
	case manifestFile != "":
		path := absPath(dir, manifestFile)
		return func() ([]string, error) {
			return manifest.LoadFileList(path)
		}
	default:
		return func() ([]string, error) { return configured, nil }
	}
}

func absPath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func printCompileSummary(w io.Writer, s *compiler.Summary) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "Compiled %d files (%d missing, %d bytes) into %s\n",
		s.Processed, len(s.Missing), s.Bytes, s.Output)
}
