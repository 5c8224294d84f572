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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Endpoint != "local" {
		t.Errorf("Expected default endpoint 'local', got '%s'", cfg.Endpoint)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].Driver != "memory" {
		t.Errorf("Expected one memory endpoint, got %+v", cfg.Endpoints)
	}
	// SELECT scans are off by default: an accidental scan of a large
	// table is the most expensive mistake a session can make.
	if cfg.Shell.AllowSelectScan {
		t.Error("Expected allow_select_scan false by default")
	}
	if cfg.Shell.Format != "smart" {
		t.Errorf("Expected default format 'smart', got '%s'", cfg.Shell.Format)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log_level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogJSON != false {
		t.Errorf("Expected default log_json false, got %v", cfg.LogJSON)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "active endpoint not declared",
			mutate: func(cfg *Config) {
				cfg.Endpoint = "staging"
			},
			wantErr: true,
		},
		{
			name: "remote endpoint without addr",
			mutate: func(cfg *Config) {
				cfg.Endpoints = append(cfg.Endpoints,
					EndpointConfig{Name: "staging", Driver: "remote"})
			},
			wantErr: true,
		},
		{
			name: "valid remote endpoint",
			mutate: func(cfg *Config) {
				cfg.Endpoints = append(cfg.Endpoints,
					EndpointConfig{Name: "staging", Driver: "remote", Addr: "db.internal:8000"})
			},
			wantErr: false,
		},
		{
			name: "invalid driver",
			mutate: func(cfg *Config) {
				cfg.Endpoints[0].Driver = "postgres"
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			mutate: func(cfg *Config) {
				cfg.Shell.Format = "fancy"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			mutate: func(cfg *Config) {
				cfg.LogLevel = "loud"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoints = append(cfg.Endpoints,
		EndpointConfig{Name: "staging", Driver: "remote", Addr: "db.internal:8000"})

	ep, err := cfg.GetEndpoint("")
	if err != nil || ep.Name != "local" {
		t.Errorf("Active endpoint = %+v (err %v)", ep, err)
	}
	ep, err = cfg.GetEndpoint("staging")
	if err != nil || ep.Addr != "db.internal:8000" {
		t.Errorf("Named endpoint = %+v (err %v)", ep, err)
	}
	if _, err := cfg.GetEndpoint("nope"); err == nil {
		t.Error("Expected an error for an unknown endpoint")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `# Test configuration
endpoint: staging
endpoints:
  - name: local
    driver: memory
  - name: staging
    driver: remote
    addr: dynamo.staging.internal:8000
    region: us-west-2
shell:
  allow_select_scan: true
  format: json
  page_size: 50
log_level: debug
log_json: true
`

	configPath := filepath.Join(tmpDir, "dql.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	cfg := mgr.Get()

	if cfg.Endpoint != "staging" {
		t.Errorf("Expected endpoint 'staging', got '%s'", cfg.Endpoint)
	}
	ep, err := cfg.GetEndpoint("")
	if err != nil {
		t.Fatalf("GetEndpoint failed: %v", err)
	}
	if ep.Addr != "dynamo.staging.internal:8000" || ep.Region != "us-west-2" {
		t.Errorf("Endpoint = %+v", ep)
	}
	if !cfg.Shell.AllowSelectScan {
		t.Error("Expected allow_select_scan true from file")
	}
	if cfg.Shell.Format != "json" {
		t.Errorf("Expected format 'json', got '%s'", cfg.Shell.Format)
	}
	if cfg.Shell.PageSize != 50 {
		t.Errorf("Expected page_size 50, got %d", cfg.Shell.PageSize)
	}
	if cfg.LogLevel != "debug" || !cfg.LogJSON {
		t.Errorf("Logging = %s/%v", cfg.LogLevel, cfg.LogJSON)
	}
	if cfg.ConfigFile != configPath {
		t.Errorf("Expected ConfigFile '%s', got '%s'", configPath, cfg.ConfigFile)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvEndpoint, "staging")
	t.Setenv(EnvAllowSelectScan, "true")
	t.Setenv(EnvFormat, "csv")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogJSON, "1")

	mgr := NewManager()
	mgr.LoadFromEnv()

	cfg := mgr.Get()

	if cfg.Endpoint != "staging" {
		t.Errorf("Expected endpoint 'staging' from env, got '%s'", cfg.Endpoint)
	}
	if !cfg.Shell.AllowSelectScan {
		t.Error("Expected allow_select_scan true from env")
	}
	if cfg.Shell.Format != "csv" {
		t.Errorf("Expected format 'csv' from env, got '%s'", cfg.Shell.Format)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log_level 'debug' from env, got '%s'", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("Expected log_json true from env")
	}
}

func TestMetricsAddrEnvEnables(t *testing.T) {
	t.Setenv(EnvMetricsAddr, ":9191")

	mgr := NewManager()
	mgr.LoadFromEnv()

	cfg := mgr.Get()
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9191" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()

	// The file sets the format to csv, the environment overrides it.
	configContent := `shell:
  format: csv
`
	configPath := filepath.Join(tmpDir, "dql.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv(EnvFormat, "expanded")

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	mgr.LoadFromEnv()

	cfg := mgr.Get()
	if cfg.Shell.Format != "expanded" {
		t.Errorf("Expected format 'expanded' (env override), got '%s'", cfg.Shell.Format)
	}
}

func TestToYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "staging"
	cfg.Endpoints = append(cfg.Endpoints,
		EndpointConfig{Name: "staging", Driver: "remote", Addr: "db.internal:8000"})

	out := cfg.ToYAML()

	if !strings.Contains(out, "endpoint: staging") {
		t.Error("YAML output missing endpoint")
	}
	if !strings.Contains(out, "driver: remote") {
		t.Error("YAML output missing driver")
	}
	if !strings.Contains(out, "addr: db.internal:8000") {
		t.Error("YAML output missing addr")
	}
}

func TestSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Shell.Format = "expanded"
	cfg.Shell.PageSize = 25

	configPath := filepath.Join(tmpDir, "subdir", "dql.yaml")
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	loaded := mgr.Get()
	if loaded.Shell.Format != "expanded" {
		t.Errorf("Expected format 'expanded', got '%s'", loaded.Shell.Format)
	}
	if loaded.Shell.PageSize != 25 {
		t.Errorf("Expected page_size 25, got %d", loaded.Shell.PageSize)
	}
}

func TestReload(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `shell:
  format: csv
log_level: info
`
	configPath := filepath.Join(tmpDir, "dql.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	// Track reload callback
	reloadCalled := false
	mgr.OnReload(func(c *Config) {
		reloadCalled = true
	})

	newContent := `shell:
  format: json
log_level: debug
`
	if err := os.WriteFile(configPath, []byte(newContent), 0644); err != nil {
		t.Fatalf("Failed to update config file: %v", err)
	}

	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Shell.Format != "json" {
		t.Errorf("Expected reloaded format 'json', got '%s'", cfg.Shell.Format)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected reloaded log_level 'debug', got '%s'", cfg.LogLevel)
	}
	if !reloadCalled {
		t.Error("Reload callback was not called")
	}
}

func TestGlobalManager(t *testing.T) {
	mgr := Global()
	if mgr == nil {
		t.Error("Global() returned nil")
	}

	// Should return the same instance
	mgr2 := Global()
	if mgr != mgr2 {
		t.Error("Global() returned different instances")
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	str := cfg.String()

	if !strings.Contains(str, "Endpoint:") {
		t.Error("String() missing Endpoint")
	}
	if !strings.Contains(str, "local") {
		t.Error("String() missing endpoint value")
	}
	if !strings.Contains(str, "Format:") {
		t.Error("String() missing Format")
	}
}
