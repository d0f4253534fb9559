package config

import "path/filepath"

// Config represents the complete openphone-gw configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Webhook WebhookConfig `yaml:"webhook"`
	State   StateConfig   `yaml:"state"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ServerConfig defines HTTP listener settings.
type ServerConfig struct {
	// Port is the TCP port the webhook server listens on.
	Port int `yaml:"port"`

	// MaxBodySize is the maximum allowed request body size (e.g., "1MB", "2048576").
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// StoreConfig defines the backing store connection.
type StoreConfig struct {
	// URL is either a postgres:// connection URL or a SQLite file path.
	URL string `yaml:"url"`

	// Credential is the store service credential. For Postgres it is injected
	// as the connection password; SQLite ignores it.
	Credential string `yaml:"credential,omitempty"`
}

// WebhookConfig defines webhook verification settings.
type WebhookConfig struct {
	// Secret is the shared HMAC secret. Empty disables signature verification.
	Secret string `yaml:"secret,omitempty"`
}

// StateConfig defines local runtime state settings (PID lock).
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// LockPath returns the PID lock location inside the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.State.Dir, "openphone-gw.lock")
}

// ChecksumManifest is the parsed .checksums integrity manifest.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "openphone-gw",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Server: ServerConfig{
			Port:        3000,
			MaxBodySize: "1MB",
		},
		Store: StoreConfig{
			URL: "./data/openphone.db",
		},
		State: StateConfig{
			Dir: "./data",
		},
	}
}
