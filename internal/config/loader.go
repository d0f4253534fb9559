package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file.
// An empty configPath means "no file": defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		cfg := &Config{}
		applyEnvOverrides(cfg)
		cfg = applyConfigDefaults(cfg)
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	// Resolve to absolute path for consistent relative path resolution
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	// Check if path is directory or file
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		// Directory provided - look for config.yaml inside
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}

	// Precedence: file values, then environment, then defaults.
	applyEnvOverrides(cfg)
	cfg = applyConfigDefaults(cfg)

	// Hash-verify the configuration file when a .checksums manifest exists
	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DiscoverConfigPath finds the config file by checking standard locations.
// Priority order: $OPENPHONE_GW_CONFIG, ~/.config/openphone-gw, /etc/openphone-gw, ./config.yaml
func DiscoverConfigPath() (string, error) {
	// 1. Check environment variable
	if path := os.Getenv("OPENPHONE_GW_CONFIG"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// 2. Check user config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "openphone-gw")
		if _, err := os.Stat(userConfigDir); err == nil {
			return userConfigDir, nil
		}
	}

	// 3. Check system config directory
	systemConfigDir := "/etc/openphone-gw"
	if _, err := os.Stat(systemConfigDir); err == nil {
		return systemConfigDir, nil
	}

	// 4. Fallback to single-file config in current directory
	legacyConfigPath := "./config.yaml"
	if _, err := os.Stat(legacyConfigPath); err == nil {
		return legacyConfigPath, nil
	}

	return "", fmt.Errorf("no config found (checked: $OPENPHONE_GW_CONFIG, ~/.config/openphone-gw, /etc/openphone-gw, ./config.yaml)")
}

// loadConfigFile loads and parses a single config file.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Apply environment variable interpolation
	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// verifyConfigHash checks the config file against the .checksums manifest in
// its directory. A missing manifest skips verification.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	checksums, err := LoadChecksums(dir)
	if err != nil {
		return nil
	}

	basename := filepath.Base(path)
	expectedHash, ok := checksums.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: openphone-gw config lock --config %s", basename, dir, path)
	}

	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: openphone-gw config lock --config %s", path, err, path)
	}

	return nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.MaxBodySize == "" {
		cfg.Server.MaxBodySize = defaults.Server.MaxBodySize
	}

	if cfg.Store.URL == "" {
		cfg.Store.URL = defaults.Store.URL
	}

	if cfg.State.Dir == "" {
		cfg.State.Dir = defaults.State.Dir
	}

	return cfg
}

// applyEnvOverrides fills unset values from the environment. The YAML file
// wins when both are present (it may already interpolate ${VARS} explicitly);
// bare-environment deployments carry no file at all.
func applyEnvOverrides(cfg *Config) {
	if cfg.Server.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if cfg.Store.URL == "" {
		cfg.Store.URL = os.Getenv("STORE_URL")
	}
	if cfg.Store.Credential == "" {
		cfg.Store.Credential = os.Getenv("STORE_CREDENTIAL")
	}
	if cfg.Webhook.Secret == "" {
		cfg.Webhook.Secret = os.Getenv("OPENPHONE_WEBHOOK_SECRET")
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name from ${VAR}
		varName := envVarPattern.FindStringSubmatch(match)[1]

		// Look up environment variable
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[cfg.Service.LogFormat] {
		return fmt.Errorf("service.log_format must be one of: json, text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in range 1-65535 (got %d)", cfg.Server.Port)
	}

	if cfg.Store.URL == "" {
		return fmt.Errorf("store.url is required")
	}

	// Check for unresolved env vars (security: no placeholders passed to the store)
	for field, value := range map[string]string{
		"store.url":        cfg.Store.URL,
		"store.credential": cfg.Store.Credential,
		"webhook.secret":   cfg.Webhook.Secret,
	} {
		if envVarPattern.MatchString(value) {
			matches := envVarPattern.FindStringSubmatch(value)
			if len(matches) > 1 {
				return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
			}
			return fmt.Errorf("%s: unresolved environment variable", field)
		}
	}

	return nil
}
