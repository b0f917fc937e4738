package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	EnvPath           = "PATH"
)

type Configuration struct {
	configFs afero.Fs
	// configurationDir is the directory relative paths are resolved against.
	configurationDir string

	PromptName      string `json:"prompt_name" validate:"required"`
	BinDir          string `json:"bin_dir" validate:"required,startswith=/"`
	ClearPath       bool   `json:"clear_path"`
	ColorPrompt     bool   `json:"color_prompt"`
	EventLog        string `json:"event_log"`
	MetricsTextfile string `json:"metrics_textfile"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewOsFs()
	}
	return c.configFs
}

func (c *Configuration) resolve(name string) string {
	if filepath.IsAbs(name) || c.configurationDir == "" {
		return name
	}
	return filepath.Join(c.configurationDir, name)
}

// OpenEventLog opens the job event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.resolve(c.EventLog), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the job event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.resolve(c.EventLog), os.O_RDONLY, 0600)
}

// MetricsPath returns the resolved path of the metrics text file, or the empty
// string if metrics export is disabled.
func (c *Configuration) MetricsPath() string {
	if c.MetricsTextfile == "" {
		return ""
	}
	return c.resolve(c.MetricsTextfile)
}

// ChildEnv returns the environment programs started by the shell receive.
func (c *Configuration) ChildEnv(environ []string) []string {
	out := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		if c.ClearPath && strings.HasPrefix(kv, EnvPath+"=") {
			continue
		}
		out = append(out, kv)
	}
	if c.ClearPath {
		out = append(out, EnvPath+"=")
	}
	return out
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration backed by the OS filesystem.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewOsFs()
	return out
}
