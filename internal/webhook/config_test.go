package webhook

import (
	"testing"

	"github.com/mattjoyce/openphone-gw/internal/config"
)

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		name    string
		size    string
		want    int64
		wantErr bool
	}{
		{"empty uses default", "", DefaultMaxBodySize, false},
		{"plain bytes", "2048", 2048, false},
		{"kilobytes", "512KB", 512 * 1024, false},
		{"megabytes", "1MB", 1024 * 1024, false},
		{"gigabytes", "1GB", 1024 * 1024 * 1024, false},
		{"lowercase unit", "1mb", 1024 * 1024, false},
		{"spaces tolerated", " 2 MB", 2 * 1024 * 1024, false},
		{"negative", "-1", 0, true},
		{"zero", "0", 0, true},
		{"garbage", "lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMaxBodySize(tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseMaxBodySize(%q) error = %v, wantErr %v", tt.size, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMaxBodySize(%q) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

func TestFromGlobalConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Port = 8080
	cfg.Server.MaxBodySize = "2MB"
	cfg.Webhook.Secret = "shh"

	got, err := FromGlobalConfig(cfg)
	if err != nil {
		t.Fatalf("FromGlobalConfig() error = %v", err)
	}

	if got.Listen != ":8080" {
		t.Errorf("Listen = %q, want %q", got.Listen, ":8080")
	}
	if got.Secret != "shh" {
		t.Errorf("Secret = %q, want %q", got.Secret, "shh")
	}
	if got.MaxBodySize != 2*1024*1024 {
		t.Errorf("MaxBodySize = %d, want %d", got.MaxBodySize, 2*1024*1024)
	}
}

func TestFromGlobalConfigRejectsBadSize(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.MaxBodySize = "huge"

	if _, err := FromGlobalConfig(cfg); err == nil {
		t.Error("expected error for unparseable max_body_size")
	}

	if _, err := FromGlobalConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
