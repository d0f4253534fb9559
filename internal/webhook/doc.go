// Package webhook implements the OpenPhone webhook ingestion endpoint with
// HMAC-SHA256 verification.
//
// The server exposes two routes: a health probe and the webhook receiver
// that mirrors call/message events into the contact store.
//
// # Security Model
//
// - HMAC-SHA256 signatures verified using crypto/subtle (constant-time comparison)
// - Verification is opt-in twice: it runs only when a secret is configured
//   AND the provider sent an x-openphone-signature header
// - Body size limits enforced to prevent DoS attacks
// - Request logging in middleware excludes payloads; the receipt log line
//   carries the raw payload for delivery forensics
//
// # Request Flow
//
//  1. HTTP POST arrives at /webhook/openphone
//  2. Body size checked (reject with 413 if too large)
//  3. Signature header extracted; if present, HMAC-SHA256 computed over the
//     raw body and compared in constant time (reject with 401 on mismatch)
//  4. Envelope parsed; event type and data handed to the ingestor
//  5. Contact upserted, communication inserted (in that order)
//  6. 200 returned with {"success": true}
//
// # Error Responses
//
// - 401 Unauthorized: signature present but invalid
// - 400 Bad Request: payload has no phone number
// - 413 Request Entity Too Large: body exceeds the configured limit
// - 500 Internal Server Error: persistence failure, unparseable payload, or panic
//
// # Example Usage
//
//	cfg := webhook.Config{
//		Listen:      ":3000",
//		Secret:      os.Getenv("OPENPHONE_WEBHOOK_SECRET"),
//		MaxBodySize: 1048576,
//	}
//
//	server := webhook.New(cfg, ingestor, logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
