// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rut31337/cloudforge/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// CatalogDir overrides the embedded default catalog when set
	CatalogDir string `json:"catalog_dir,omitempty"`

	// Discovery contains discovery gateway configuration
	Discovery DiscoveryConfig `json:"discovery"`

	// Validation contains version validation configuration
	Validation ValidationConfig `json:"validation"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`

	// AWS contains AWS-specific configuration
	AWS AWSConfig `json:"aws,omitempty"`

	// GCP contains GCP-specific configuration
	GCP GCPConfig `json:"gcp,omitempty"`

	// Versions contains platform version endpoint configuration
	Versions []VersionEndpointConfig `json:"versions,omitempty"`
}

// DiscoveryConfig contains discovery gateway settings
type DiscoveryConfig struct {
	// Enabled turns live discovery on; when false the engine runs on
	// static catalog rules alone
	Enabled bool `json:"enabled"`

	// TimeoutSeconds bounds each discovery call
	TimeoutSeconds int `json:"timeout_seconds"`

	// CacheTTLSeconds is how long discovery responses stay fresh
	CacheTTLSeconds int `json:"cache_ttl_seconds"`

	// VersionTTLSeconds is how long version catalogs stay fresh. It is
	// independent of the response cache TTL.
	VersionTTLSeconds int `json:"version_ttl_seconds"`

	// MaxAttempts is the retry budget per discovery call
	MaxAttempts int `json:"max_attempts"`

	// RatePerSecond throttles calls per provider
	RatePerSecond float64 `json:"rate_per_second"`

	// Concurrency bounds the per-provider resolution fan-out
	Concurrency int `json:"concurrency"`
}

// ValidationConfig contains version validation settings
type ValidationConfig struct {
	// Mode is "strict" or "permissive"
	Mode string `json:"mode"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format
	DefaultFormat string `json:"default_format"`
}

// AWSConfig contains AWS-specific settings
type AWSConfig struct {
	// Region is the region discovery calls run in
	Region string `json:"region"`

	// Profile is the AWS shared-config profile to use
	Profile string `json:"profile,omitempty"`
}

// GCPConfig contains GCP-specific settings
type GCPConfig struct {
	// CredentialsFile is a service account key path (ambient creds when empty)
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// VersionEndpointConfig wires one platform to a version feed
type VersionEndpointConfig struct {
	// Platform is the platform identifier, e.g. "openshift"
	Platform string `json:"platform"`

	// Endpoint is the version feed URL
	Endpoint string `json:"endpoint"`

	// TokenEnv names the environment variable holding a bearer token.
	// The token itself never appears in configuration.
	TokenEnv string `json:"token_env,omitempty"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Discovery: DiscoveryConfig{
			Enabled:           true,
			TimeoutSeconds:    5,
			CacheTTLSeconds:   1800,
			VersionTTLSeconds: 3600,
			MaxAttempts:       3,
			RatePerSecond:     5,
			Concurrency:       4,
		},
		Validation: ValidationConfig{
			Mode: "strict",
		},
		Output: OutputConfig{
			DefaultFormat: "cli",
		},
		Logging: logging.DefaultConfig(),
		AWS: AWSConfig{
			Region: "us-east-1",
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
