package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Verify checks an HMAC-SHA256 signature against the raw request body.
//
// An empty secret disables verification and always passes; the caller
// decides whether to invoke verification at all based on configuration.
// Comparison uses constant-time comparison (crypto/subtle) to prevent
// timing attacks.
//
// Supported signature formats:
//   - "sha256=<hex>" (provider style)
//   - "<hex>" (plain hex)
//
// Malformed signatures are treated as non-matching, never as errors.
func Verify(body []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}

	// Compute HMAC-SHA256 of request body
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	providedMAC, err := parseSignature(signature)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(expectedMAC, providedMAC) == 1
}

// parseSignature extracts and decodes the HMAC signature from its header
// representation, stripping a leading "sha256=" when present. Returns the
// raw bytes of the signature.
func parseSignature(signature string) ([]byte, error) {
	if strings.HasPrefix(signature, "sha256=") {
		hexSig := strings.TrimPrefix(signature, "sha256=")
		return hex.DecodeString(hexSig)
	}

	return hex.DecodeString(signature)
}

// computeExpectedSignature computes the HMAC-SHA256 signature for a body.
// Used for testing and validation. Returns hex-encoded signature.
func computeExpectedSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// formatSignature formats a hex signature in the provider's "sha256=<hex>" form.
func formatSignature(hexSig string) string {
	return "sha256=" + hexSig
}
