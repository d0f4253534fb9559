package doctor

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/openphone-gw/internal/config"
	"github.com/mattjoyce/openphone-gw/internal/lock"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		Service: config.ServiceConfig{
			Name:      "openphone-gw",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Server: config.ServerConfig{
			Port:        3000,
			MaxBodySize: "1MB",
		},
		Store: config.StoreConfig{
			URL: filepath.Join(tmpDir, "openphone.db"),
		},
		Webhook: config.WebhookConfig{
			Secret: "shh",
		},
		State: config.StateConfig{Dir: tmpDir},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	d := New(validConfig(t))
	r := d.Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Service.LogLevel = "verbose"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "service", "log level")
}

func TestValidate_PortOutOfRange(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Server.Port = 70000
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "server", "out of range")
}

func TestValidate_PrivilegedPortWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Server.Port = 80
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "server", "privileged")
}

func TestValidate_MissingStoreURL(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Store.URL = ""
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "store", "required")
}

func TestValidate_PostgresURL(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Store.URL = "postgres://svc@db.example.com:5432/mirror"
	cfg.Store.Credential = "s3cret"
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
}

func TestValidate_PostgresWithoutHost(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Store.URL = "postgres:///mirror"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "store", "no host")
}

func TestValidate_PostgresWithoutCredentialWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Store.URL = "postgres://svc@db.example.com:5432/mirror"
	cfg.Store.Credential = ""
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "store", "without a password")
}

func TestValidate_EmptySecretWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Webhook.Secret = ""
	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "webhook", "verification is disabled")
}

func TestValidate_RunningServiceWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)

	l, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got: %v", r.Errors)
	}
	assertHasWarning(t, r, "state", "running already")
}

func TestValidate_UnresolvedEnvVarWarns(t *testing.T) {
	cfg := validConfig(t)
	cfg.Webhook.Secret = "${DEFINITELY_NOT_SET_ANYWHERE}"
	r := New(cfg).Validate()
	assertHasWarning(t, r, "env_vars", "DEFINITELY_NOT_SET_ANYWHERE")
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Message: "bad thing"}},
	}
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bad thing") {
		t.Fatalf("expected JSON to contain error message, got: %s", out)
	}
}

func TestFormatHuman_Valid(t *testing.T) {
	t.Parallel()
	r := &Result{Valid: true}
	out := FormatHuman(r)
	if !strings.Contains(out, "valid") {
		t.Fatalf("expected 'valid' in output, got: %s", out)
	}
}

func TestFormatHuman_Errors(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Field: "x.y", Message: "broken"}},
	}
	out := FormatHuman(r)
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "broken") {
		t.Fatalf("expected error in output, got: %s", out)
	}
}

// --- helpers ---

func assertHasError(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, e := range r.Errors {
		if e.Category == category && strings.Contains(e.Message, substring) {
			return
		}
	}
	t.Fatalf("no %s error containing %q; errors: %v", category, substring, r.Errors)
}

func assertHasWarning(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Category == category && strings.Contains(w.Message, substring) {
			return
		}
	}
	t.Fatalf("no %s warning containing %q; warnings: %v", category, substring, r.Warnings)
}
