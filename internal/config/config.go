package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
)

// DefaultPath is the configuration file looked up when no --config is given.
const DefaultPath = "blueprintdocs.yaml"

// Config represents the application configuration.
type Config struct {
	// RepoTemplate is used for components without an explicit repo; {name} is replaced by the component name.
	RepoTemplate string        `yaml:"repo_template,omitempty"`
	Components   Components    `yaml:"components"`
	Builder      ToolConfig    `yaml:"builder"`
	Publish      PublishConfig `yaml:"publish"`
	Domain       DomainConfig  `yaml:"domain"`
	Retry        RetryConfig   `yaml:"retry"`
	Logging      LoggingConfig `yaml:"logging"`
	Metrics      MetricsConfig `yaml:"metrics,omitempty"`
	History      HistoryConfig `yaml:"history,omitempty"`
}

// ToolConfig describes an external command. Args may contain {placeholder} references.
type ToolConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// PublishConfig controls the static hosting branch publisher.
type PublishConfig struct {
	Branch   string      `yaml:"branch"`
	Remote   string      `yaml:"remote"`
	RootRef  string      `yaml:"root_ref"`
	SeedGlob string      `yaml:"seed_glob"`
	Auth     *AuthConfig `yaml:"auth,omitempty"`
	ToolConfig `yaml:",inline"`
}

// DomainConfig configures the documentation domain.
type DomainConfig struct {
	Name       string   `yaml:"name"`
	Blueprints []string `yaml:"blueprints"`
	Strict     bool     `yaml:"strict"`
}

// MetricsConfig enables the Prometheus text exposition file.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig enables the sqlite build history.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Default returns a configuration with every default applied and no
// components. Commands that work without a configuration file use it.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("Configuration loaded", logfields.Path(configPath), slog.Int("components", len(cfg.Components)))
	return cfg, nil
}

// Parse decodes configuration content, expands environment references, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Components))
	for _, comp := range c.Components {
		if seen[comp.Name] {
			return errors.ValidationError("duplicate component").WithContext("component", comp.Name).Build()
		}
		seen[comp.Name] = true
		if strings.TrimSpace(comp.Branch) == "" {
			return errors.ValidationError(fmt.Sprintf("component %s: branch is required", comp.Name)).
				WithContext("component", comp.Name).
				Build()
		}
		if err := comp.Auth.Validate(); err != nil {
			return errors.ValidationError(fmt.Sprintf("component %s: %v", comp.Name, err)).
				WithContext("component", comp.Name).
				Build()
		}
	}
	if c.Builder.Command == "" {
		return errors.ValidationError("builder.command is required").Build()
	}
	if c.Publish.Command == "" {
		return errors.ValidationError("publish.command is required").Build()
	}
	if !strings.Contains(c.RepoTemplate, "{name}") && c.hasTemplatedComponents() {
		return errors.ValidationError("repo_template must contain {name}").Build()
	}
	if c.Retry.Retries() < 0 {
		return errors.ValidationError("retry.max_retries cannot be negative").Build()
	}
	if NormalizeRetryBackoff(string(c.Retry.Backoff)) == "" {
		return errors.ValidationError(fmt.Sprintf("unknown retry backoff %q", c.Retry.Backoff)).Build()
	}
	return nil
}

func (c *Config) hasTemplatedComponents() bool {
	for _, comp := range c.Components {
		if comp.templated {
			return true
		}
	}
	return false
}

// Component returns the named component.
func (c *Config) Component(name string) (Component, bool) {
	for _, comp := range c.Components {
		if comp.Name == name {
			return comp, true
		}
	}
	return Component{}, false
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	example := Config{
		Components: Components{
			{Name: "cloudify-openstack-plugin", Branch: "master"},
			{Name: "cloudify-aws-plugin", Branch: "master", Repo: "https://github.com/cloudify-cosmo/cloudify-aws-plugin.git"},
		},
		Domain: DomainConfig{Blueprints: []string{DefaultBlueprint}},
	}
	example.ApplyDefaults()

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.InternalError("failed to marshal config").WithCause(err).Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.FileSystemError("failed to write config file").WithCause(err).WithContext("path", configPath).Build()
	}
	return nil
}

// loadEnvFile loads the first of .env/.env.local that exists. Existing process variables win.
func loadEnvFile() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(p), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(p))
		return
	}
}
