package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kodaira/appsetup/internal/i18n"
	"gopkg.in/yaml.v3"
)

// Config represents the complete appsetup configuration
type Config struct {
	Product ProductConfig `yaml:"product"`
	Paths   PathsConfig   `yaml:"paths"`
	Payload PayloadConfig `yaml:"payload"`
	Install InstallConfig `yaml:"install"`
	Locale  string        `yaml:"locale"`
}

// ProductConfig describes the packaged application
type ProductConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Publisher string `yaml:"publisher"`
	Exe       string `yaml:"exe"`
}

// PathsConfig configures the environment roots. Empty fields are resolved
// from platform conventions by the command layer; the drivers only ever see
// absolute paths.
type PathsConfig struct {
	InstallRoot  string `yaml:"install_root"`
	AppDataRoot  string `yaml:"app_data_root"`
	UserDocsRoot string `yaml:"user_docs_root"`
}

// PayloadConfig locates the pre-built application payload and its manifest
type PayloadConfig struct {
	Dir      string `yaml:"dir"`
	Manifest string `yaml:"manifest"`
}

// InstallConfig configures install behavior
type InstallConfig struct {
	DefaultTasks      []string `yaml:"default_tasks"`
	LaunchAfter       *bool    `yaml:"launch_after"`
	RegisterUninstall *bool    `yaml:"register_uninstall"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Product.Name = os.ExpandEnv(c.Product.Name)
	c.Product.Version = os.ExpandEnv(c.Product.Version)
	c.Product.Publisher = os.ExpandEnv(c.Product.Publisher)
	c.Product.Exe = os.ExpandEnv(c.Product.Exe)
	c.Paths.InstallRoot = os.ExpandEnv(c.Paths.InstallRoot)
	c.Paths.AppDataRoot = os.ExpandEnv(c.Paths.AppDataRoot)
	c.Paths.UserDocsRoot = os.ExpandEnv(c.Paths.UserDocsRoot)
	c.Payload.Dir = os.ExpandEnv(c.Payload.Dir)
	c.Payload.Manifest = os.ExpandEnv(c.Payload.Manifest)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Locale == "" {
		c.Locale = i18n.DefaultLocale
	}
	if c.Install.LaunchAfter == nil {
		v := true
		c.Install.LaunchAfter = &v
	}
	if c.Install.RegisterUninstall == nil {
		v := true
		c.Install.RegisterUninstall = &v
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Product.Name == "" {
		return fmt.Errorf("product.name is required")
	}
	if c.Product.Version == "" {
		return fmt.Errorf("product.version is required")
	}
	if c.Product.Exe == "" {
		return fmt.Errorf("product.exe is required")
	}

	if c.Payload.Dir == "" {
		return fmt.Errorf("payload.dir is required")
	}
	if c.Payload.Manifest == "" {
		return fmt.Errorf("payload.manifest is required")
	}

	// Configured roots must be absolute; an empty field means "resolve from
	// platform conventions" and is allowed.
	if c.Paths.InstallRoot != "" && !filepath.IsAbs(c.Paths.InstallRoot) {
		return fmt.Errorf("paths.install_root must be an absolute path: %s", c.Paths.InstallRoot)
	}
	if c.Paths.AppDataRoot != "" && !filepath.IsAbs(c.Paths.AppDataRoot) {
		return fmt.Errorf("paths.app_data_root must be an absolute path: %s", c.Paths.AppDataRoot)
	}
	if c.Paths.UserDocsRoot != "" && !filepath.IsAbs(c.Paths.UserDocsRoot) {
		return fmt.Errorf("paths.user_docs_root must be an absolute path: %s", c.Paths.UserDocsRoot)
	}

	if !i18n.Supported(c.Locale) {
		return fmt.Errorf("unsupported locale: %s (available: %v)", c.Locale, i18n.Locales())
	}

	return nil
}

// LaunchAfter reports whether the post-install launch is enabled
func (c *Config) LaunchAfter() bool {
	return c.Install.LaunchAfter == nil || *c.Install.LaunchAfter
}

// RegisterUninstall reports whether the platform uninstall entry is written
func (c *Config) RegisterUninstall() bool {
	return c.Install.RegisterUninstall == nil || *c.Install.RegisterUninstall
}

// ManifestPath returns the configured manifest location
func (c *Config) ManifestPath() string {
	return c.Payload.Manifest
}

// ExePath returns the main executable path under the given install root
func (c *Config) ExePath(installRoot string) string {
	return filepath.Join(installRoot, c.Product.Exe)
}
