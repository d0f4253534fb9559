// Package doctor validates openphone-gw configuration and its runtime
// environment.
package doctor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/mattjoyce/openphone-gw/internal/config"
	"github.com/mattjoyce/openphone-gw/internal/lock"
	"github.com/mattjoyce/openphone-gw/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServiceConfig(r)
	d.validateServerConfig(r)
	d.validateStoreConfig(r)
	d.validateWebhookConfig(r)
	d.validateStateConfig(r)
	d.warnMissingEnvVars(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateServiceConfig checks required service fields.
func (d *Doctor) validateServiceConfig(r *Result) {
	if d.cfg.Service.Name == "" {
		d.addWarning(r, "service", "service.name", "service name is empty")
	}
	switch d.cfg.Service.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		d.addError(r, "service", "service.log_level",
			fmt.Sprintf("invalid log level %q (expected debug, info, warn, or error)", d.cfg.Service.LogLevel))
	}
	switch d.cfg.Service.LogFormat {
	case "json", "text":
	default:
		d.addError(r, "service", "service.log_format",
			fmt.Sprintf("invalid log format %q (expected json or text)", d.cfg.Service.LogFormat))
	}
}

// validateServerConfig checks the HTTP listener settings.
func (d *Doctor) validateServerConfig(r *Result) {
	port := d.cfg.Server.Port
	if port < 1 || port > 65535 {
		d.addError(r, "server", "server.port",
			fmt.Sprintf("port %d out of range (1-65535)", port))
		return
	}
	if port < 1024 {
		d.addWarning(r, "server", "server.port",
			fmt.Sprintf("port %d is privileged and requires elevated permissions to bind", port))
	}
}

// validateStoreConfig checks the backing store target. Postgres URLs are
// validated structurally; SQLite paths are checked for network filesystems.
func (d *Doctor) validateStoreConfig(r *Result) {
	raw := d.cfg.Store.URL
	if raw == "" {
		d.addError(r, "store", "store.url", "store.url is required")
		return
	}

	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		u, err := url.Parse(raw)
		if err != nil {
			d.addError(r, "store", "store.url", fmt.Sprintf("invalid postgres URL: %v", err))
			return
		}
		if u.Host == "" {
			d.addError(r, "store", "store.url", "postgres URL has no host")
		}
		if d.cfg.Store.Credential == "" {
			if _, hasPassword := u.User.Password(); !hasPassword {
				d.addWarning(r, "store", "store.credential",
					"no credential configured; the connection will be attempted without a password")
			}
		}
		return
	}

	if err := storage.ValidateSQLiteFilesystem(raw); err != nil {
		d.addError(r, "store", "store.url", err.Error())
	}
}

// validateWebhookConfig flags a missing shared secret. Ingestion still works
// without one, but deliveries are accepted unverified.
func (d *Doctor) validateWebhookConfig(r *Result) {
	if d.cfg.Webhook.Secret == "" {
		d.addWarning(r, "webhook", "webhook.secret",
			"no webhook secret configured; signature verification is disabled")
	}
}

// validateStateConfig checks the state directory and probes the PID lock.
func (d *Doctor) validateStateConfig(r *Result) {
	if d.cfg.State.Dir == "" {
		d.addError(r, "state", "state.dir", "state.dir is required")
		return
	}

	held, pid, err := lock.Probe(d.cfg.LockPath())
	if err != nil {
		d.addWarning(r, "state", "state.dir", fmt.Sprintf("could not probe PID lock: %v", err))
		return
	}
	if held {
		d.addWarning(r, "state", "state.dir",
			fmt.Sprintf("service appears to be running already (pid %d)", pid))
	}
}

// warnMissingEnvVars warns about ${VAR} references where VAR is not set.
func (d *Doctor) warnMissingEnvVars(r *Result) {
	envVarRe := regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

	fields := []struct {
		field string
		value string
	}{
		{"store.url", d.cfg.Store.URL},
		{"store.credential", d.cfg.Store.Credential},
		{"webhook.secret", d.cfg.Webhook.Secret},
	}
	for _, f := range fields {
		for _, m := range envVarRe.FindAllStringSubmatch(f.value, -1) {
			if os.Getenv(m[1]) == "" {
				d.addWarning(r, "env_vars", f.field,
					fmt.Sprintf("environment variable ${%s} not set", m[1]))
			}
		}
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
