package e2e

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/openphone-gw/internal/ingest"
	"github.com/mattjoyce/openphone-gw/internal/log"
	"github.com/mattjoyce/openphone-gw/internal/storage"
	"github.com/mattjoyce/openphone-gw/internal/webhook"
)

const testSecret = "e2e-webhook-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, baseURL string, body []byte, signature string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest("POST", baseURL+"/webhook/openphone", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-openphone-signature", signature)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func waitForHealthy(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("server never became healthy")
}

func TestWebhookIngestionEndToEnd(t *testing.T) {
	// 1. Setup Environment
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "openphone.db")

	log.Setup("ERROR", "text") // Keep logs clean
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := storage.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	// 2. Start the webhook server on a free local port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	ingestor := ingest.New(store, log.WithComponent("ingest"))
	server := webhook.New(webhook.Config{
		Listen: addr,
		Secret: testSecret,
	}, ingestor, log.WithComponent("webhook"))

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Start(serverCtx) }()

	baseURL := "http://" + addr
	waitForHealthy(t, baseURL)

	// 3. Deliver a signed message event
	msg := []byte(`{"type":"message","data":{"phoneNumber":"+15551234567","name":"Alice","text":"hi"}}`)
	status, decoded := postWebhook(t, baseURL, msg, sign(msg))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if decoded["success"] != true {
		t.Fatalf("success = %v, want true", decoded["success"])
	}

	contact, err := store.ContactByPhone(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("contact not persisted: %v", err)
	}
	if contact.Name == nil || *contact.Name != "Alice" {
		t.Errorf("contact name = %v, want Alice", contact.Name)
	}

	// 4. Redelivery for the same number: one contact, a second communication
	call := []byte(`{"type":"call","data":{"phoneNumber":"+15551234567","duration":42,"createdAt":"2025-03-14T09:26:53Z"}}`)
	status, _ = postWebhook(t, baseURL, call, sign(call))
	if status != http.StatusOK {
		t.Fatalf("call delivery status = %d, want %d", status, http.StatusOK)
	}

	contacts, communications, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if contacts != 1 {
		t.Errorf("contacts = %d, want 1", contacts)
	}
	if communications != 2 {
		t.Errorf("communications = %d, want 2", communications)
	}

	recent, err := store.RecentCommunications(ctx, 10)
	if err != nil {
		t.Fatalf("recent communications: %v", err)
	}
	if len(recent) != 2 || recent[0].Type != "call" {
		t.Errorf("unexpected recent communications: %+v", recent)
	}

	// 5. Tampered signature is rejected
	status, decoded = postWebhook(t, baseURL, msg, sign([]byte("something else")))
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if decoded["error"] != "Invalid signature" {
		t.Errorf("error = %v, want Invalid signature", decoded["error"])
	}

	// 6. Payload without a phone number is a client error
	noPhone := []byte(`{"type":"message","data":{"text":"hello"}}`)
	status, decoded = postWebhook(t, baseURL, noPhone, sign(noPhone))
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if decoded["error"] != "Missing required phone number data" {
		t.Errorf("error = %v, want Missing required phone number data", decoded["error"])
	}

	// Rejected deliveries must not have persisted anything
	if _, communicationsAfter, _ := store.Counts(ctx); communicationsAfter != 2 {
		t.Errorf("communications after rejections = %d, want 2", communicationsAfter)
	}

	// 7. Health keeps answering when the store is gone; ingestion reports 500
	store.Close()

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d with store closed", resp.StatusCode, http.StatusOK)
	}

	status, decoded = postWebhook(t, baseURL, msg, sign(msg))
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d with store closed", status, http.StatusInternalServerError)
	}
	if decoded["error"] != "Failed to upsert contact" {
		t.Errorf("error = %v, want Failed to upsert contact", decoded["error"])
	}

	// 8. Graceful shutdown
	stopServer()
	select {
	case err := <-serverDone:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("server returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
