package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory
const FileName = ".chameleon-mock.yml"

// ErrNotFound is returned by Load when the config file does not exist
var ErrNotFound = errors.New("config file not found")

// Loader handles loading and parsing .chameleon-mock.yml
type Loader struct {
	filePath string
	workDir  string
}

// NewLoader creates a new config loader
func NewLoader(workDir string) *Loader {
	return &Loader{
		filePath: filepath.Join(workDir, FileName),
		workDir:  workDir,
	}
}

// NewFileLoader loads an explicit config file; relative paths inside it
// resolve against the file's directory
func NewFileLoader(path string) *Loader {
	return &Loader{
		filePath: path,
		workDir:  filepath.Dir(path),
	}
}

// Path returns the config file location
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and parses the config file
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s\nRun 'chameleon-mock init' to create one", ErrNotFound, l.filePath)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand environment variables in connection string
	cfg.Database.ConnectionString = os.ExpandEnv(cfg.Database.ConnectionString)
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.ConnectionString = url
	}

	if err := l.resolvePaths(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolvePaths converts relative paths to absolute
func (l *Loader) resolvePaths(cfg *Config) error {
	if cfg.Schema.Path != "" {
		abs, err := l.resolvePath(cfg.Schema.Path)
		if err != nil {
			return fmt.Errorf("invalid schema path '%s': %w", cfg.Schema.Path, err)
		}
		cfg.Schema.Path = abs
	}

	for i, path := range cfg.Fixtures.Paths {
		abs, err := l.resolvePath(path)
		if err != nil {
			return fmt.Errorf("invalid fixtures path '%s': %w", path, err)
		}
		cfg.Fixtures.Paths[i] = abs
	}

	return nil
}

// resolvePath converts relative or absolute path to absolute
func (l *Loader) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(l.workDir, path))
}

// LoadOrDefault loads config or returns defaults resolved against the
// working directory
func (l *Loader) LoadOrDefault() (*Config, error) {
	cfg, err := l.Load()
	if errors.Is(err, ErrNotFound) {
		cfg = Defaults()
		cfg.Database.ConnectionString = os.ExpandEnv(cfg.Database.ConnectionString)
		if url := os.Getenv("DATABASE_URL"); url != "" {
			cfg.Database.ConnectionString = url
		}
		if err := l.resolvePaths(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

// Save writes config to file
func (l *Loader) Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// WriteTemplate writes the commented config template
func (l *Loader) WriteTemplate(createdAt time.Time) error {
	tmpl, err := template.New("config").Parse(Template())
	if err != nil {
		return err
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, struct{ CreatedAt string }{createdAt.UTC().Format(time.RFC3339)}); err != nil {
		return err
	}

	if err := os.WriteFile(l.filePath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Template returns the template content for .chameleon-mock.yml
func Template() string {
	return `# chameleon-mock configuration
# Generated at {{.CreatedAt}}

version: "0.3.0"
created_at: {{.CreatedAt}}

# Entity schema used to validate fixtures and queries
schema:
  path: "./schema.yml"

# Mock expectations (YAML, TOML or JSON files, or directories of them)
fixtures:
  paths:
    - "./fixtures"
  # Fail replay when an expectation is never received
  strict: false

# Debug output: none, sql, trace, explain
debug:
  level: none
  color: true

# Record replay/validate/query runs under .chameleon-mock/journal
journal:
  enabled: true

# Only used by 'chameleon-mock query --live'
database:
  driver: "postgresql"
  # DATABASE_URL overrides this value
  connection_string: ${DATABASE_URL}
  max_connections: 10
  connection_timeout: 30  # seconds
`
}
