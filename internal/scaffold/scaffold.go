package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/saop-labs/saop/internal/branding"
	"github.com/saop-labs/saop/internal/manifest"
	"github.com/saop-labs/saop/internal/platform"
)

// TemplateSuffix marks files rendered with text/template.
const TemplateSuffix = ".tmpl"

// DefaultPort is used when the base URL carries no port.
const DefaultPort = 9999

// AgentFile is the agent manifest written into every project.
const AgentFile = "agent.yaml"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ErrInvalidName is returned for agent names that cannot be used as a
// directory and package name.
var ErrInvalidName = errors.New("invalid agent name")

// Data holds all template variables available to scaffold templates.
type Data struct {
	Name         string // e.g., "billing-agent"
	DisplayName  string // e.g., "Billing Agent"
	PackageName  string // e.g., "billing_agent"
	AgentID      string // random UUID
	Version      string // Semver, e.g., "0.1.0"
	Year         int
	BaseURL      string
	DefaultAgent string
	Port         int
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// ValidateName checks that name is usable as a project directory.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w %q: use letters, digits, '-' and '_', starting with a letter or digit", ErrInvalidName, name)
	}
	return nil
}

// NewData creates Data with derived fields populated.
func NewData(name, baseURL, defaultAgent string) *Data {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	return &Data{
		Name:         name,
		DisplayName:  cases.Title(language.English).String(strings.Join(words, " ")),
		PackageName:  strings.ToLower(strings.ReplaceAll(name, "-", "_")),
		AgentID:      uuid.NewString(),
		Version:      "0.1.0",
		Year:         time.Now().Year(),
		BaseURL:      baseURL,
		DefaultAgent: defaultAgent,
		Port:         portOf(baseURL),
	}
}

func portOf(baseURL string) int {
	u, err := url.Parse(baseURL)
	if err != nil {
		return DefaultPort
	}
	p, err := strconv.Atoi(u.Port())
	if err != nil || p <= 0 {
		return DefaultPort
	}
	return p
}

// Source returns the template tree: the embedded default when dir is empty,
// otherwise the directory on disk.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(templateFS, templateRoot)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("template directory %q not found", dir)
	}
	return os.DirFS(dir), nil
}

// Generate copies the template tree src into outputDir, which must not
// exist yet. On failure the partially written directory is removed.
func Generate(src fs.FS, data *Data, outputDir string) (result *Result, err error) {
	if _, statErr := os.Stat(outputDir); statErr == nil {
		return nil, fmt.Errorf("directory %q already exists", outputDir)
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", outputDir, statErr)
	}

	if err := os.MkdirAll(outputDir, platform.DirPermNormal); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(outputDir)
		}
	}()

	result = &Result{OutputDir: outputDir}

	err = fs.WalkDir(src, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == "." {
			return nil
		}

		outRel := strings.TrimSuffix(p, TemplateSuffix)
		outPath := filepath.Join(outputDir, filepath.FromSlash(outRel))

		if d.IsDir() {
			return os.MkdirAll(outPath, platform.DirPermNormal)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		content, err := fs.ReadFile(src, p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}

		if strings.HasSuffix(p, TemplateSuffix) {
			content, err = render(p, content, data)
			if err != nil {
				return err
			}
		}

		if err := os.WriteFile(outPath, content, filePerm(outRel)); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		// umask applies to WriteFile.
		if err := platform.Chmod(outPath, filePerm(outRel)); err != nil {
			return err
		}

		result.Files = append(result.Files, outRel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Warnings = validateGenerated(outputDir)
	return result, nil
}

func render(name string, content []byte, data *Data) ([]byte, error) {
	tmpl, err := template.New(path.Base(name)).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// filePerm keeps secrets files private.
func filePerm(rel string) os.FileMode {
	base := path.Base(rel)
	if base == ".env" || strings.HasPrefix(base, ".env.") {
		return platform.FilePermSecure
	}
	return platform.FilePermNormal
}

// validateGenerated checks the generated manifests against their schemas
// and returns the issues as warnings.
func validateGenerated(dir string) []string {
	var warnings []string
	checks := []struct {
		file string
		kind manifest.Kind
	}{
		{branding.ProjectFile(), manifest.KindProject},
		{AgentFile, manifest.KindAgent},
	}
	for _, c := range checks {
		p := filepath.Join(dir, c.file)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		res, err := manifest.ValidateFile(c.kind, p)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: could not validate: %v", c.file, err))
			continue
		}
		for _, issue := range res.Issues {
			warnings = append(warnings, c.file+": "+issue.String())
		}
	}
	return warnings
}
