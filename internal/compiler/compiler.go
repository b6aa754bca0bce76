package compiler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/logging"
)

// DefaultOutput is the report file name used when none is configured.
const DefaultOutput = "backend_files_compiled.txt"

// BannerWidth is the number of '=' characters in a section banner.
const BannerWidth = 76

// TimestampLayout matches the output of date(1).
const TimestampLayout = time.UnixDate

var banner = strings.Repeat("=", BannerWidth)

// Config is the compile section of saop.yaml.
type Config struct {
	Output string   `mapstructure:"output"`
	Files  []string `mapstructure:"files"`
}

// DefaultConfig returns the built-in compile settings.
func DefaultConfig() Config {
	return Config{
		Output: DefaultOutput,
		Files:  []string{},
	}
}

// Summary describes one finished compilation.
type Summary struct {
	Output      string
	Processed   int
	Found       []string
	Missing     []string
	Bytes       int64
	GeneratedAt time.Time
	WorkDir     string
}

// Compiler writes compilation reports.
type Compiler struct {
	// Dir is the working directory paths are resolved against. Defaults to
	// the process working directory.
	Dir string
	// Output is the report path, relative to Dir unless absolute.
	Output string
	// Console receives the human-readable progress lines.
	Console io.Writer
	Logger  *zap.Logger
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Compile writes the report for files and returns its summary. The
// timestamp and working directory are captured before any file is read.
// Only failure to produce the report itself is returned as an error.
func (c *Compiler) Compile(files []string) (*Summary, error) {
	log := logging.OrNop(c.Logger)

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	startedAt := now()

	workDir := c.Dir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		workDir = wd
	}

	console := c.Console
	if console == nil {
		console = io.Discard
	}

	output := c.Output
	if output == "" {
		output = DefaultOutput
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(workDir, output)
	}

	f, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("creating report %s: %w", output, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	summary := &Summary{
		Output:      output,
		GeneratedAt: startedAt,
		WorkDir:     workDir,
	}

	log.Debug("compiling report", zap.String("output", output), zap.Int("files", len(files)))

	for _, rel := range files {
		content, ok, reason := readSource(workDir, rel)
		if !ok {
			fmt.Fprintf(console, "%s %s not found\n", color.YellowString("Warning:"), rel)
			log.Debug("source missing", zap.String("path", rel), zap.String("reason", reason))
			writeMissing(w, rel)
			summary.Missing = append(summary.Missing, rel)
		} else {
			fmt.Fprintf(console, "Adding %s...\n", rel)
			writeSection(w, rel, content)
			summary.Found = append(summary.Found, rel)
			summary.Bytes += int64(len(content))
		}
		summary.Processed++
	}

	writeSummary(w, summary)

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing report %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing report %s: %w", output, err)
	}

	log.Debug("report written",
		zap.String("output", output),
		zap.Int("found", len(summary.Found)),
		zap.Int("missing", len(summary.Missing)))
	return summary, nil
}

// readSource returns the content of rel when it names a readable regular
// file. Otherwise it reports why the file is treated as missing.
func readSource(workDir, rel string) ([]byte, bool, string) {
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, rel)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err.Error()
	}
	if !info.Mode().IsRegular() {
		return nil, false, "not a regular file"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err.Error()
	}
	return data, true, ""
}

func writeSection(w io.Writer, rel string, content []byte) {
	fmt.Fprintf(w, "%s\n# FILE: %s\n%s\n\n", banner, rel, banner)
	w.Write(content)
	io.WriteString(w, "\n\n")
}

func writeMissing(w io.Writer, rel string) {
	fmt.Fprintf(w, "%s\n# FILE: %s (NOT FOUND)\n%s\n\n", banner, rel, banner)
}

func writeSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "%s\n# COMPILATION SUMMARY\n%s\n", banner, banner)
	fmt.Fprintf(w, "# Total files processed: %d\n", s.Processed)
	fmt.Fprintf(w, "# Generated on: %s\n", s.GeneratedAt.Format(TimestampLayout))
	fmt.Fprintf(w, "# Working directory: %s\n", s.WorkDir)
	fmt.Fprintf(w, "%s\n", banner)
}
