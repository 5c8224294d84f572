/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides the configuration management system for DQL.

The configuration system supports multiple sources with clear precedence:
 1. Command-line flags (highest priority)
 2. Environment variables
 3. Configuration file
 4. Default values (lowest priority)

Configuration File Format:
The configuration file uses YAML.

Example configuration file:

	endpoint: local
	endpoints:
	  - name: local
	    driver: memory
	  - name: staging
	    driver: remote
	    addr: dynamo.staging.internal:8000
	    region: us-west-2
	shell:
	  allow_select_scan: false
	  format: smart
	  page_size: 1000
	metrics:
	  enabled: false
	  addr: :9090
	discovery:
	  enabled: false
	  service: _dql._tcp
	log_level: info
	log_json: false

Environment Variables:
  - DQL_ENDPOINT: Name of the endpoint to connect to
  - DQL_ALLOW_SELECT_SCAN: Allow SELECT to fall back to table scans (true/false)
  - DQL_FORMAT: Default output format (smart, column, expanded, csv, json)
  - DQL_HISTORY_FILE: Path to the shell history file
  - DQL_METRICS_ADDR: Listen address of the Prometheus endpoint
  - DQL_LOG_LEVEL: Log level (debug, info, warn, error)
  - DQL_LOG_JSON: Enable JSON logging (true/false)
  - DQL_CONFIG_FILE: Path to configuration file
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Environment variable names for configuration.
const (
	EnvEndpoint        = "DQL_ENDPOINT"
	EnvAllowSelectScan = "DQL_ALLOW_SELECT_SCAN"
	EnvFormat          = "DQL_FORMAT"
	EnvHistoryFile     = "DQL_HISTORY_FILE"
	EnvMetricsAddr     = "DQL_METRICS_ADDR"
	EnvLogLevel        = "DQL_LOG_LEVEL"
	EnvLogJSON         = "DQL_LOG_JSON"
	EnvConfigFile      = "DQL_CONFIG_FILE"
)

// Output formats the shell accepts.
var Formats = []string{"smart", "column", "expanded", "csv", "json"}

// GetDefaultDataDir returns the default directory for shell state such
// as the history file. For root users, it uses /var/lib/dql. For
// non-root users, it uses ~/.local/share/dql (XDG Base Directory).
func GetDefaultDataDir() string {
	if os.Getuid() == 0 {
		return "/var/lib/dql"
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "dql")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share", "dql")
	}
	return "./data"
}

// Default configuration file paths (searched in order).
var DefaultConfigPaths = []string{
	"/etc/dql/dql.yaml",
	"$HOME/.config/dql/dql.yaml",
	"./dql.yaml",
}

// EndpointConfig names one store endpoint the shell can connect to.
type EndpointConfig struct {
	Name   string `yaml:"name"`
	Driver string `yaml:"driver"` // memory or remote
	Addr   string `yaml:"addr"`
	Region string `yaml:"region"`
}

// ShellConfig holds interactive shell settings.
type ShellConfig struct {
	// AllowSelectScan permits SELECT statements to fall back to table
	// scans. Off by default: an accidental scan of a large table is the
	// most expensive mistake a session can make.
	AllowSelectScan bool `yaml:"allow_select_scan"`

	// Format is the default output format.
	Format string `yaml:"format"`

	// HistoryFile is the path of the readline history file.
	HistoryFile string `yaml:"history_file"`

	// PageSize caps rows fetched per statement in the shell; 0 means
	// unbounded.
	PageSize int `yaml:"page_size"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DiscoveryConfig holds mDNS endpoint discovery settings.
type DiscoveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
	Domain  string `yaml:"domain"`
	Port    int    `yaml:"port"`
}

// Config holds all configuration values for DQL.
type Config struct {
	// Endpoint is the name of the active endpoint.
	Endpoint  string           `yaml:"endpoint"`
	Endpoints []EndpointConfig `yaml:"endpoints"`

	Shell     ShellConfig     `yaml:"shell"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Logging configuration
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Metadata
	ConfigFile string `yaml:"-"` // Path to loaded config file
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "local",
		Endpoints: []EndpointConfig{
			{Name: "local", Driver: "memory"},
		},
		Shell: ShellConfig{
			AllowSelectScan: false,
			Format:          "smart",
			HistoryFile:     filepath.Join(GetDefaultDataDir(), "history"),
			PageSize:        1000,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Discovery: DiscoveryConfig{
			Enabled: false,
			Service: "_dql._tcp",
			Domain:  "local.",
			Port:    8000,
		},
		LogLevel: "info",
		LogJSON:  false,
	}
}

// Manager handles configuration loading, validation, and access.
type Manager struct {
	config *Config
	mu     sync.RWMutex

	// Callbacks for configuration changes (for hot-reload support)
	onReload []func(*Config)
}

// NewManager creates a new configuration manager with default values.
func NewManager() *Manager {
	return &Manager{
		config:   DefaultConfig(),
		onReload: make([]func(*Config), 0),
	}
}

// Global manager instance for convenience.
var globalManager = NewManager()

// Global returns the global configuration manager.
func Global() *Manager {
	return globalManager
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return a copy to prevent external modification
	cfg := *m.config
	return &cfg
}

// Set updates the configuration.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// OnReload registers a callback to be called when configuration is reloaded.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

// notifyReload calls all registered reload callbacks.
func (m *Manager) notifyReload() {
	m.mu.RLock()
	callbacks := make([]func(*Config), len(m.onReload))
	copy(callbacks, m.onReload)
	cfg := m.config
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

// GetEndpoint resolves an endpoint by name, or the active one for "".
func (c *Config) GetEndpoint(name string) (EndpointConfig, error) {
	if name == "" {
		name = c.Endpoint
	}
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, nil
		}
	}
	return EndpointConfig{}, fmt.Errorf("unknown endpoint: %s", name)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if _, err := c.GetEndpoint(""); err != nil {
		errs = append(errs, fmt.Sprintf("endpoint %q is not declared in endpoints", c.Endpoint))
	}
	for _, ep := range c.Endpoints {
		switch ep.Driver {
		case "memory":
		case "remote":
			if ep.Addr == "" {
				errs = append(errs, fmt.Sprintf("endpoint %q: addr is required for the remote driver", ep.Name))
			}
		default:
			errs = append(errs, fmt.Sprintf("endpoint %q: invalid driver: %s (must be memory or remote)", ep.Name, ep.Driver))
		}
	}

	validFormat := false
	for _, f := range Formats {
		if c.Shell.Format == f {
			validFormat = true
			break
		}
	}
	if !validFormat {
		errs = append(errs, fmt.Sprintf("invalid format: %s (must be one of %s)",
			c.Shell.Format, strings.Join(Formats, ", ")))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		// Valid log levels
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (m *Manager) LoadFromFile(path string) error {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ConfigFile = path
	m.Set(cfg)
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// This merges with existing configuration (env vars override file values).
func (m *Manager) LoadFromEnv() {
	cfg := m.Get()

	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvAllowSelectScan); v != "" {
		cfg.Shell.AllowSelectScan = isTrue(v)
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Shell.Format = v
	}
	if v := os.Getenv(EnvHistoryFile); v != "" {
		cfg.Shell.HistoryFile = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		cfg.LogJSON = isTrue(v)
	}

	m.Set(cfg)
}

func isTrue(v string) bool {
	return strings.ToLower(v) == "true" || v == "1"
}

// FindConfigFile searches for a configuration file in default locations.
// Returns the path to the first file found, or empty string if none found.
func FindConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(os.ExpandEnv(envPath)); err == nil {
			return os.ExpandEnv(envPath)
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		expandedPath := os.ExpandEnv(path)
		if _, err := os.Stat(expandedPath); err == nil {
			return expandedPath
		}
	}

	return ""
}

// Load loads configuration from all sources with proper precedence.
// Order: defaults -> config file -> environment variables
// Command-line flags should be applied after calling this function.
func (m *Manager) Load() error {
	// Start with defaults (already set in NewManager)

	// Try to load from config file
	configPath := FindConfigFile()
	if configPath != "" {
		if err := m.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	// Apply environment variables (override file values)
	m.LoadFromEnv()

	return nil
}

// Reload reloads configuration from file and environment.
func (m *Manager) Reload() error {
	cfg := m.Get()
	configPath := cfg.ConfigFile

	if configPath == "" {
		configPath = FindConfigFile()
	}

	// Reset to defaults
	m.Set(DefaultConfig())

	// Reload from file if available
	if configPath != "" {
		if err := m.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	// Apply environment variables
	m.LoadFromEnv()

	// Notify listeners
	m.notifyReload()

	return nil
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("DQL Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Endpoint:          %s\n", c.Endpoint))
	for _, ep := range c.Endpoints {
		if ep.Addr != "" {
			sb.WriteString(fmt.Sprintf("    %-12s %s (%s)\n", ep.Name+":", ep.Addr, ep.Driver))
		} else {
			sb.WriteString(fmt.Sprintf("    %-12s %s\n", ep.Name+":", ep.Driver))
		}
	}
	sb.WriteString(fmt.Sprintf("  Allow SELECT scan: %v\n", c.Shell.AllowSelectScan))
	sb.WriteString(fmt.Sprintf("  Format:            %s\n", c.Shell.Format))
	sb.WriteString(fmt.Sprintf("  Metrics:           %v (%s)\n", c.Metrics.Enabled, c.Metrics.Addr))
	sb.WriteString(fmt.Sprintf("  Log Level:         %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  Log JSON:          %v\n", c.LogJSON))
	if c.ConfigFile != "" {
		sb.WriteString(fmt.Sprintf("  Config File:       %s\n", c.ConfigFile))
	}
	return sb.String()
}

// ToYAML returns the configuration as a YAML document.
func (c *Config) ToYAML() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return "# DQL Configuration File\n" + string(data)
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	// Expand environment variables
	path = os.ExpandEnv(path)

	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, []byte(c.ToYAML()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
