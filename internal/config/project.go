package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/saop-labs/saop/internal/branding"
	"github.com/saop-labs/saop/internal/compiler"
	"github.com/saop-labs/saop/internal/envsetup"
	"github.com/saop-labs/saop/internal/testrunner"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Settings is the merged project configuration.
type Settings struct {
	Compile compiler.Config   `mapstructure:"compile"`
	Setup   envsetup.Config   `mapstructure:"setup"`
	Runner  testrunner.Config `mapstructure:"runner"`

	// Source is the saop.yaml that was merged, or empty when none exists.
	Source string `mapstructure:"-"`
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Compile: compiler.DefaultConfig(),
		Setup:   envsetup.DefaultConfig(),
		Runner:  testrunner.DefaultConfig(),
	}
}

// ProjectFilePath returns the saop.yaml path inside dir.
func ProjectFilePath(dir string) string {
	return filepath.Join(dir, branding.ProjectFile())
}

// LoadProject merges defaults, the user config file, dir/saop.yaml and
// SAOP_* environment variables into Settings. Missing files are skipped;
// unreadable or malformed ones are errors.
func LoadProject(dir string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	setDefaults(v, Defaults())

	if err := mergeFile(v, FilePath()); err != nil {
		return nil, err
	}

	projectFile := ProjectFilePath(dir)
	merged := false
	if _, err := os.Stat(projectFile); err == nil {
		if err := mergeFile(v, projectFile); err != nil {
			return nil, err
		}
		merged = true
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if merged {
		s.Source = projectFile
	}
	return s, nil
}

func mergeFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every settings key so environment variables are
// picked up by Unmarshal.
func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("compile.output", d.Compile.Output)
	v.SetDefault("compile.files", d.Compile.Files)

	v.SetDefault("setup.manager", d.Setup.Manager)
	v.SetDefault("setup.min_version", d.Setup.MinVersion)
	v.SetDefault("setup.groups", d.Setup.Groups)
	v.SetDefault("setup.shell", d.Setup.Shell)
	v.SetDefault("setup.dotenv", d.Setup.DotEnv)

	v.SetDefault("runner.base_url", d.Runner.BaseURL)
	v.SetDefault("runner.default_agent", d.Runner.DefaultAgent)
	v.SetDefault("runner.client_script", d.Runner.ClientScript)
	v.SetDefault("runner.interpreter", d.Runner.Interpreter)
	v.SetDefault("runner.required_module", d.Runner.RequiredModule)
}
