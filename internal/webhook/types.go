package webhook

import (
	"context"

	"github.com/mattjoyce/openphone-gw/internal/ingest"
)

// IngestService defines the interface for processing verified webhook events.
type IngestService interface {
	Process(ctx context.Context, eventType string, data map[string]any) (ingest.Result, error)
}

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address the HTTP server binds to (e.g., ":3000")
	Listen string

	// Secret is the shared HMAC secret; empty disables signature verification
	Secret string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64
}

// Event is the provider's webhook envelope.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// HealthResponse is the JSON response for health probes.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// SuccessResponse is the JSON response for processed webhook deliveries.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB

	// SignatureHeader carries the provider's HMAC signature.
	SignatureHeader = "x-openphone-signature"
)
