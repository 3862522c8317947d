// Package config provides configuration loading for all Slipway services.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/fernet/fernet-go"
	"gopkg.in/yaml.v3"
)

const (
	ReposDir = "repos"

	DefaultBodyLimitBytes = 25 * 1024 * 1024
)

// EnvProvider abstracts environment variable access for testing
type EnvProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
}

// DefaultEnvProvider implements EnvProvider using real OS functions
type DefaultEnvProvider struct{}

func (p *DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (p *DefaultEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// GetDefaultDataDir returns the default Slipway data directory following the
// XDG Base Directory specification
func GetDefaultDataDir() string {
	return getDefaultDataDirWithEnv(&DefaultEnvProvider{})
}

func getDefaultDataDirWithEnv(env EnvProvider) string {
	xdgDataHome := env.Getenv("XDG_DATA_HOME")
	if xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "slipway")
	}

	homeDir, _ := env.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "slipway")
}

// Config holds configuration for all services
type Config struct {
	// Core paths
	DataDir      string
	DatabasePath string
	BaseDir      string // root of the bare repository tree

	// HTTP server
	ListenAddr     string
	BodyLimitBytes int64
	BaseDomain     string
	Secure         bool
	IPv6           bool

	// Builds
	ConcurrentBuilds int
	BuildpackCommand string

	// Auth
	SessionSecret string
	AuthEnabled   bool

	// Logging
	LogLevel     string
	LogFormat    string
	ColorEnabled bool

	// External binaries and daemons
	DockerHost    string
	GitBinary     string
	DatabaseImage string

	// Container engine call deadlines
	CreateTimeout  time.Duration
	InspectTimeout time.Duration

	// Route watcher
	RouteSyncInterval time.Duration

	// Environment provider for testing
	env EnvProvider
}

// NewConfig creates the server configuration: defaults, then the optional
// YAML file, then environment variables.
func NewConfig(configPath string) (*Config, error) {
	return newConfigWithEnv(&DefaultEnvProvider{}, configPath, "")
}

// NewConfigForCLI creates a configuration for CLI usage with an optional
// data directory override
func NewConfigForCLI(cliDataDir string) (*Config, error) {
	return newConfigWithEnv(&DefaultEnvProvider{}, "", cliDataDir)
}

// NewConfigWithEnv creates a configuration with a custom environment
// provider (for testing)
func NewConfigWithEnv(env EnvProvider, configPath, cliDataDir string) (*Config, error) {
	return newConfigWithEnv(env, configPath, cliDataDir)
}

func newConfigWithEnv(env EnvProvider, configPath, cliDataDir string) (*Config, error) {
	c := &Config{env: env}

	// Set defaults first
	c.setDefaults()

	// Override with the config file, if provided
	if configPath != "" {
		if err := c.applyFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	c.loadFromEnv()

	// Override with CLI flags (if provided)
	if cliDataDir != "" {
		c.DataDir = cliDataDir
	}

	// Derive dependent paths
	c.derivePaths()

	// Validate
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// setDefaults sets sensible default values
func (c *Config) setDefaults() {
	c.DataDir = getDefaultDataDirWithEnv(c.env)
	c.ListenAddr = "0.0.0.0:8080"
	c.BodyLimitBytes = DefaultBodyLimitBytes
	c.BaseDomain = "localhost:8080"
	c.Secure = false
	c.IPv6 = false
	c.ConcurrentBuilds = max(1, runtime.NumCPU()-1)
	c.BuildpackCommand = "nixpacks"
	c.AuthEnabled = true
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.ColorEnabled = true
	c.DockerHost = "unix:///var/run/docker.sock"
	c.GitBinary = "git"
	c.DatabaseImage = "postgres:16-alpine"
	c.CreateTimeout = 30 * time.Second
	c.InspectTimeout = 5 * time.Second
	c.RouteSyncInterval = time.Minute
	// Don't set a default session secret - it must be provided explicitly
}

// fileConfig is the YAML config file schema. Pointer fields distinguish
// "absent" from zero values.
type fileConfig struct {
	DatabaseURL       *string `yaml:"database_url"`
	ListenAddr        *string `yaml:"listen_addr"`
	BodyLimitBytes    *int64  `yaml:"body_limit_bytes"`
	BaseDir           *string `yaml:"base_dir"`
	BaseDomain        *string `yaml:"base_domain"`
	Secure            *bool   `yaml:"secure"`
	ConcurrentBuilds  *int    `yaml:"concurrent_builds"`
	SessionSecret     *string `yaml:"session_secret"`
	AuthEnabled       *bool   `yaml:"auth_enabled"`
	IPv6              *bool   `yaml:"ipv6"`
	LogLevel          *string `yaml:"log_level"`
	LogFormat         *string `yaml:"log_format"`
	DockerHost        *string `yaml:"docker_host"`
	BuildpackCommand  *string `yaml:"buildpack_command"`
	GitBinary         *string `yaml:"git_binary"`
	DatabaseImage     *string `yaml:"database_image"`
	DataDir           *string `yaml:"data_dir"`
	RouteSyncInterval *string `yaml:"route_sync_interval"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fc.DatabaseURL != nil {
		c.DatabasePath = *fc.DatabaseURL
	}
	if fc.ListenAddr != nil {
		c.ListenAddr = *fc.ListenAddr
	}
	if fc.BodyLimitBytes != nil {
		c.BodyLimitBytes = *fc.BodyLimitBytes
	}
	if fc.BaseDir != nil {
		c.BaseDir = *fc.BaseDir
	}
	if fc.BaseDomain != nil {
		c.BaseDomain = *fc.BaseDomain
	}
	if fc.Secure != nil {
		c.Secure = *fc.Secure
	}
	if fc.ConcurrentBuilds != nil {
		c.ConcurrentBuilds = *fc.ConcurrentBuilds
	}
	if fc.SessionSecret != nil {
		c.SessionSecret = *fc.SessionSecret
	}
	if fc.AuthEnabled != nil {
		c.AuthEnabled = *fc.AuthEnabled
	}
	if fc.IPv6 != nil {
		c.IPv6 = *fc.IPv6
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		c.LogFormat = *fc.LogFormat
	}
	if fc.DockerHost != nil {
		c.DockerHost = *fc.DockerHost
	}
	if fc.BuildpackCommand != nil {
		c.BuildpackCommand = *fc.BuildpackCommand
	}
	if fc.GitBinary != nil {
		c.GitBinary = *fc.GitBinary
	}
	if fc.DatabaseImage != nil {
		c.DatabaseImage = *fc.DatabaseImage
	}
	if fc.DataDir != nil {
		c.DataDir = *fc.DataDir
	}
	if fc.RouteSyncInterval != nil {
		if d, err := time.ParseDuration(*fc.RouteSyncInterval); err == nil {
			c.RouteSyncInterval = d
		}
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if v := c.env.Getenv("SLIPWAY_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := c.env.Getenv("SLIPWAY_DATABASE_URL"); v != "" {
		c.DatabasePath = v
	}
	if v := c.env.Getenv("SLIPWAY_BASE_DIR"); v != "" {
		c.BaseDir = v
	}
	if v := c.env.Getenv("SLIPWAY_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := c.env.Getenv("SLIPWAY_BODY_LIMIT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.BodyLimitBytes = n
		}
	}
	if v := c.env.Getenv("SLIPWAY_BASE_DOMAIN"); v != "" {
		c.BaseDomain = v
	}
	if v := c.env.Getenv("SLIPWAY_SECURE"); v != "" {
		if secure, err := strconv.ParseBool(v); err == nil {
			c.Secure = secure
		}
	}
	if v := c.env.Getenv("SLIPWAY_IPV6"); v != "" {
		if ipv6, err := strconv.ParseBool(v); err == nil {
			c.IPv6 = ipv6
		}
	}
	if v := c.env.Getenv("SLIPWAY_CONCURRENT_BUILDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ConcurrentBuilds = n
		}
	}
	if v := c.env.Getenv("SLIPWAY_BUILDPACK_COMMAND"); v != "" {
		c.BuildpackCommand = v
	}
	if v := c.env.Getenv("SLIPWAY_SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := c.env.Getenv("SLIPWAY_AUTH_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.AuthEnabled = enabled
		}
	}
	if v := c.env.Getenv("SLIPWAY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := c.env.Getenv("SLIPWAY_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := c.env.Getenv("SLIPWAY_COLOR_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.ColorEnabled = enabled
		}
	}
	if v := c.env.Getenv("SLIPWAY_DOCKER_HOST"); v != "" {
		c.DockerHost = v
	}
	if v := c.env.Getenv("SLIPWAY_GIT_BINARY"); v != "" {
		c.GitBinary = v
	}
	if v := c.env.Getenv("SLIPWAY_DATABASE_IMAGE"); v != "" {
		c.DatabaseImage = v
	}
	if v := c.env.Getenv("SLIPWAY_CREATE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CreateTimeout = d
		}
	}
	if v := c.env.Getenv("SLIPWAY_INSPECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InspectTimeout = d
		}
	}
	if v := c.env.Getenv("SLIPWAY_ROUTE_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RouteSyncInterval = d
		}
	}
}

// derivePaths calculates dependent paths from the base DataDir
func (c *Config) derivePaths() {
	if c.BaseDir == "" {
		c.BaseDir = filepath.Join(c.DataDir, ReposDir)
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "slipway.db")
	}
}

// ListenNetwork returns the listener network for net.Listen
func (c *Config) ListenNetwork() string {
	if c.IPv6 {
		return "tcp6"
	}
	return "tcp4"
}

// validate ensures configuration values are valid
func (c *Config) validate() error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warning": true, "error": true, "silent": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warning, error, or silent)", c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}

	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.ListenAddr, err)
	}

	if c.BodyLimitBytes <= 0 {
		return fmt.Errorf("invalid body limit: %d (must be positive)", c.BodyLimitBytes)
	}

	if c.ConcurrentBuilds < 1 {
		return fmt.Errorf("invalid concurrent builds: %d (must be at least 1)", c.ConcurrentBuilds)
	}

	if c.AuthEnabled {
		if c.SessionSecret == "" {
			return fmt.Errorf("session secret is required when authentication is enabled")
		}
		if _, err := fernet.DecodeKey(c.SessionSecret); err != nil {
			return fmt.Errorf("invalid session secret: %w", err)
		}
	}

	return nil
}
