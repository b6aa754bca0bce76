package compiler

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)

func newTestCompiler(t *testing.T, dir string) (*Compiler, *bytes.Buffer) {
	t.Helper()
	var console bytes.Buffer
	return &Compiler{
		Dir:     dir,
		Console: &console,
		Now:     func() time.Time { return fixedNow },
	}, &console
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readReport(t *testing.T, s *Summary) string {
	t.Helper()
	data, err := os.ReadFile(s.Output)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	return string(data)
}

func TestCompile_FoundAndMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	c, console := newTestCompiler(t, dir)
	summary, err := c.Compile([]string{"a.txt", "missing.txt"})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := banner + "\n# FILE: a.txt\n" + banner + "\n\nhello\n\n" +
		banner + "\n# FILE: missing.txt (NOT FOUND)\n" + banner + "\n\n" +
		banner + "\n# COMPILATION SUMMARY\n" + banner + "\n" +
		"# Total files processed: 2\n" +
		"# Generated on: " + fixedNow.Format(TimestampLayout) + "\n" +
		"# Working directory: " + dir + "\n" +
		banner + "\n"

	if got := readReport(t, summary); got != want {
		t.Errorf("report mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}

	if summary.Processed != 2 {
		t.Errorf("Processed = %d, want 2", summary.Processed)
	}
	if len(summary.Found) != 1 || summary.Found[0] != "a.txt" {
		t.Errorf("Found = %v", summary.Found)
	}
	if len(summary.Missing) != 1 || summary.Missing[0] != "missing.txt" {
		t.Errorf("Missing = %v", summary.Missing)
	}
	if summary.Bytes != 5 {
		t.Errorf("Bytes = %d, want 5", summary.Bytes)
	}

	out := console.String()
	if !strings.Contains(out, "Adding a.txt...") {
		t.Errorf("console missing progress line: %q", out)
	}
	if !strings.Contains(out, "missing.txt not found") {
		t.Errorf("console missing warning: %q", out)
	}
}

func TestCompile_SectionsFollowManifestOrder(t *testing.T) {
	dir := t.TempDir()
	files := []string{"c.py", "sub/b.py", "gone.py", "a.py"}
	writeFile(t, filepath.Join(dir, "c.py"), "c")
	writeFile(t, filepath.Join(dir, "sub", "b.py"), "b")
	writeFile(t, filepath.Join(dir, "a.py"), "a")

	c, _ := newTestCompiler(t, dir)
	summary, err := c.Compile(files)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	var markers []string
	for _, line := range strings.Split(readReport(t, summary), "\n") {
		if strings.HasPrefix(line, "# FILE: ") {
			markers = append(markers, line)
		}
	}
	want := []string{
		"# FILE: c.py",
		"# FILE: sub/b.py",
		"# FILE: gone.py (NOT FOUND)",
		"# FILE: a.py",
	}
	if len(markers) != len(want) {
		t.Fatalf("got %d sections, want %d: %v", len(markers), len(want), markers)
	}
	for i := range want {
		if markers[i] != want[i] {
			t.Errorf("section %d = %q, want %q", i, markers[i], want[i])
		}
	}
}

func TestCompile_ContentIsVerbatim(t *testing.T) {
	dir := t.TempDir()
	content := "line one\r\n\ttabbed\n# FILE: fake marker\n\x00binary\n"
	writeFile(t, filepath.Join(dir, "raw.bin"), content)

	c, _ := newTestCompiler(t, dir)
	summary, err := c.Compile([]string{"raw.bin"})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	header := banner + "\n# FILE: raw.bin\n" + banner + "\n\n"
	if !strings.Contains(readReport(t, summary), header+content+"\n\n") {
		t.Error("file content was not copied byte for byte")
	}
}

func TestCompile_TotalCountsEveryEntry(t *testing.T) {
	dir := t.TempDir()
	c, _ := newTestCompiler(t, dir)

	summary, err := c.Compile([]string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if !strings.Contains(readReport(t, summary), "# Total files processed: 3\n") {
		t.Error("summary should count missing files too")
	}
}

func TestCompile_EmptyManifest(t *testing.T) {
	dir := t.TempDir()
	c, _ := newTestCompiler(t, dir)

	summary, err := c.Compile(nil)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	report := readReport(t, summary)
	if strings.Contains(report, "# FILE:") {
		t.Error("empty manifest should produce no sections")
	}
	if !strings.Contains(report, "# Total files processed: 0\n") {
		t.Error("summary missing for empty manifest")
	}
}

func TestCompile_OverwritesPreviousReport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "first")

	c, _ := newTestCompiler(t, dir)
	if _, err := c.Compile([]string{"a.txt"}); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "a.txt"), "second")
	summary, err := c.Compile([]string{"a.txt"})
	if err != nil {
		t.Fatal(err)
	}

	report := readReport(t, summary)
	if strings.Contains(report, "first") {
		t.Error("report was appended to instead of overwritten")
	}
	if strings.Count(report, "# COMPILATION SUMMARY") != 1 {
		t.Error("expected exactly one summary section")
	}
	if !strings.Contains(report, "second") {
		t.Error("report missing new content")
	}
}

func TestCompile_DirectoryTreatedAsMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "api"), 0755); err != nil {
		t.Fatal(err)
	}

	c, _ := newTestCompiler(t, dir)
	summary, err := c.Compile([]string{"api"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(readReport(t, summary), "# FILE: api (NOT FOUND)") {
		t.Error("directory entry should be reported as not found")
	}
}

func TestCompile_DefaultAndCustomOutput(t *testing.T) {
	dir := t.TempDir()

	c, _ := newTestCompiler(t, dir)
	summary, err := c.Compile(nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Output != filepath.Join(dir, DefaultOutput) {
		t.Errorf("Output = %q, want default name in work dir", summary.Output)
	}

	c.Output = filepath.Join("reports", "out.txt")
	if _, err := c.Compile(nil); err == nil {
		t.Error("expected error when output directory does not exist")
	}

	if err := os.Mkdir(filepath.Join(dir, "reports"), 0755); err != nil {
		t.Fatal(err)
	}
	summary, err = c.Compile(nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Output != filepath.Join(dir, "reports", "out.txt") {
		t.Errorf("Output = %q", summary.Output)
	}
}

func TestCompile_TimestampCapturedOnce(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	c := &Compiler{
		Dir: dir,
		Now: func() time.Time {
			calls++
			return fixedNow.Add(time.Duration(calls) * time.Hour)
		},
	}
	summary, err := c.Compile([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("clock called %d times, want 1", calls)
	}
	if !summary.GeneratedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Errorf("GeneratedAt = %v", summary.GeneratedAt)
	}
}
