package ingest

import (
	"context"
	"time"

	"github.com/mattjoyce/openphone-gw/internal/storage"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/mattjoyce/openphone-gw/internal/ingest Store

// Store defines the persistence operations the ingestor depends on.
type Store interface {
	UpsertContact(ctx context.Context, phoneNumber string, name *string, updatedAt time.Time) (int64, error)
	InsertCommunication(ctx context.Context, rec storage.Communication) (int64, error)
}
