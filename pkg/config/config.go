// Package config loads interpreter settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

const (
	// ProjectFile is looked up in the project directory.
	ProjectFile = ".itmoscript.yaml"
	userDir     = ".itmoscript"
	userFile    = "config.yaml"
	historyFile = "history"
)

// Config holds settings shared by the CLI commands.
type Config struct {
	// Seed for rnd; zero picks a time-based seed.
	Seed   int64            `yaml:"seed"`
	Budget evaluator.Budget `yaml:"budget"`
	// Pretty selects human-readable diagnostics over JSON.
	Pretty bool `yaml:"pretty"`
	// History is the REPL history file. A leading ~/ is expanded.
	History string `yaml:"history"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// Default returns the built-in settings: no budget, pretty diagnostics
// and a history file under the user config directory.
func Default() *Config {
	cfg := &Config{Pretty: true}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.History = filepath.Join(home, userDir, historyFile)
	}
	return cfg
}

// Load reads settings from the project and user config files.
// Precedence: project (.itmoscript.yaml) → user (~/.itmoscript/config.yaml)
// → defaults. A file that exists but does not parse is an error; a
// missing file falls through to the next source.
func Load(projectDir string) (*Config, error) {
	projectPath := filepath.Join(projectDir, ProjectFile)
	if cfg, err := LoadFile(projectPath); err == nil {
		return cfg, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, userDir, userFile)
		if cfg, err := LoadFile(userPath); err == nil {
			return cfg, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return Default(), nil
}

// LoadFile reads a single config file. Fields absent from the file keep
// their default values; unknown fields are rejected.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Decode parses YAML settings on top of the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.History = expandHome(cfg.History)
	return cfg, nil
}

func (c *Config) validate() error {
	var issues []string
	if c.Budget.MaxIterations < 0 {
		issues = append(issues, "budget.maxIterations must not be negative")
	}
	if c.Budget.MaxCallDepth < 0 {
		issues = append(issues, "budget.maxCallDepth must not be negative")
	}
	if c.Budget.TimeMs < 0 {
		issues = append(issues, "budget.timeMs must not be negative")
	}
	if len(issues) > 0 {
		return errors.New(strings.Join(issues, "; "))
	}
	return nil
}

// Marshal renders the effective settings as YAML, as shown by the config
// command.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
