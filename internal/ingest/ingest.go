package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/openphone-gw/internal/storage"
)

// Sentinel errors matched by the HTTP layer via errors.Is.
var (
	ErrMissingPhoneNumber  = errors.New("missing required phone number data")
	ErrContactUpsert       = errors.New("contact upsert failed")
	ErrCommunicationInsert = errors.New("communication insert failed")
)

// Result reports what a processed event produced.
type Result struct {
	ContactID         int64
	CommunicationType string
}

// Ingestor maps provider webhook events onto contact and communication rows.
type Ingestor struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: store, logger: logger}
}

// Process extracts the communication fields from an event payload and
// persists them in order: contact upsert first, then the communication
// insert using the contact id the upsert returned. An upsert failure
// aborts processing with no insert attempted.
func (in *Ingestor) Process(ctx context.Context, eventType string, data map[string]any) (Result, error) {
	phoneNumber, ok := stringField(data, "phoneNumber")
	if !ok {
		return Result{}, ErrMissingPhoneNumber
	}

	name := firstString(data, "name", "contactName")
	text := firstString(data, "text", "message")
	duration := int64Field(data, "duration")

	now := time.Now().UTC()
	timestamp := eventTimestamp(data, now)

	communicationType := "message"
	if eventType == "call" {
		communicationType = "call"
	}

	contactID, err := in.store.UpsertContact(ctx, phoneNumber, name, now)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrContactUpsert, err)
	}

	communicationID, err := in.store.InsertCommunication(ctx, storage.Communication{
		ContactID: contactID,
		Type:      communicationType,
		Text:      text,
		Duration:  duration,
		Timestamp: timestamp,
		CreatedAt: now,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCommunicationInsert, err)
	}

	in.logger.Info("Webhook processed",
		"communication_type", communicationType,
		"phone_number", phoneNumber,
		"contact_id", contactID,
		"communication_id", communicationID)

	return Result{ContactID: contactID, CommunicationType: communicationType}, nil
}

// stringField returns data[key] when it holds a non-empty string.
func stringField(data map[string]any, key string) (string, bool) {
	s, ok := data[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// firstString returns a pointer to the first candidate key holding a
// non-empty string, nil when none does.
func firstString(data map[string]any, keys ...string) *string {
	for _, key := range keys {
		if s, ok := stringField(data, key); ok {
			return &s
		}
	}
	return nil
}

// int64Field reads a JSON number as int64, nil when absent or non-numeric.
func int64Field(data map[string]any, key string) *int64 {
	switch n := data[key].(type) {
	case float64:
		d := int64(n)
		return &d
	case int:
		d := int64(n)
		return &d
	case int64:
		return &n
	}
	return nil
}

// eventTimestamp resolves the event time from createdAt, then timestamp.
// Strings parse as RFC 3339; numbers are epoch milliseconds. Empty and
// zero values fall through to the next candidate; a present value that
// does not parse resolves to fallback rather than consulting further
// candidates.
func eventTimestamp(data map[string]any, fallback time.Time) time.Time {
	for _, key := range []string{"createdAt", "timestamp"} {
		switch t := data[key].(type) {
		case string:
			if t == "" {
				continue
			}
			if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return parsed.UTC()
			}
			return fallback
		case float64:
			if t == 0 {
				continue
			}
			return time.UnixMilli(int64(t)).UTC()
		}
	}
	return fallback
}
