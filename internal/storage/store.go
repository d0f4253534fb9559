package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Contact is a persisted phone-number identity.
type Contact struct {
	ID          int64
	PhoneNumber string
	Name        *string
	UpdatedAt   string
}

// Communication is one call or message event to persist. Insert-only.
type Communication struct {
	ContactID int64
	Type      string
	Text      *string
	Duration  *int64
	Timestamp time.Time
	CreatedAt time.Time
}

// CommunicationSummary is a joined row for display.
type CommunicationSummary struct {
	ID          int64
	PhoneNumber string
	Name        string
	Type        string
	Text        string
	Duration    *int64
	Timestamp   string
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store mirrors contacts and communications into a relational backend.
// Two backends are supported: SQLite (modernc, CGo-free) and Postgres (lib/pq).
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open selects the storage backend from the URL: postgres:// and
// postgresql:// connect via lib/pq, anything else is a SQLite file path.
func Open(ctx context.Context, storeURL, credential string) (*Store, error) {
	if strings.HasPrefix(storeURL, "postgres://") || strings.HasPrefix(storeURL, "postgresql://") {
		return OpenPostgres(ctx, storeURL, credential)
	}
	return OpenSQLite(ctx, storeURL)
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const upsertContactSQL = `
INSERT INTO contacts (phone_number, name, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(phone_number) DO UPDATE SET
  name = excluded.name,
  updated_at = excluded.updated_at
RETURNING id;`

// UpsertContact inserts or updates the contact keyed on phone number and
// returns its identifier. A conflicting row has name/updated_at replaced in
// place; an incoming nil name overwrites (the provider is authoritative).
func (s *Store) UpsertContact(ctx context.Context, phoneNumber string, name *string, updatedAt time.Time) (int64, error) {
	if phoneNumber == "" {
		return 0, fmt.Errorf("phone number is empty")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(upsertContactSQL),
		phoneNumber, name, updatedAt.UTC().Format(time.RFC3339Nano)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert contact: %w", err)
	}
	return id, nil
}

const insertCommunicationSQL = `
INSERT INTO communications (contact_id, type, text, duration, timestamp, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id;`

// InsertCommunication persists one communication event and returns its
// identifier. The referenced contact must already exist.
func (s *Store) InsertCommunication(ctx context.Context, rec Communication) (int64, error) {
	if rec.ContactID == 0 {
		return 0, fmt.Errorf("contact id is zero")
	}
	if rec.Type == "" {
		return 0, fmt.Errorf("communication type is empty")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(insertCommunicationSQL),
		rec.ContactID, rec.Type, rec.Text, rec.Duration,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert communication: %w", err)
	}
	return id, nil
}

// ContactByPhone returns the contact with the given phone number, or
// sql.ErrNoRows wrapped when absent.
func (s *Store) ContactByPhone(ctx context.Context, phoneNumber string) (*Contact, error) {
	var c Contact
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, phone_number, name, updated_at FROM contacts WHERE phone_number = ?;`),
		phoneNumber).Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("read contact: %w", err)
	}
	return &c, nil
}

const recentCommunicationsSQL = `
SELECT c.id, ct.phone_number, COALESCE(ct.name, ''), c.type, COALESCE(c.text, ''), c.duration, c.timestamp
FROM communications c
JOIN contacts ct ON ct.id = c.contact_id
ORDER BY c.id DESC
LIMIT ?;`

// RecentCommunications returns the newest communications joined with their
// contacts, newest first.
func (s *Store) RecentCommunications(ctx context.Context, limit int) ([]CommunicationSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(recentCommunicationsSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent communications: %w", err)
	}
	defer rows.Close()

	var out []CommunicationSummary
	for rows.Next() {
		var cs CommunicationSummary
		if err := rows.Scan(&cs.ID, &cs.PhoneNumber, &cs.Name, &cs.Type, &cs.Text, &cs.Duration, &cs.Timestamp); err != nil {
			return nil, fmt.Errorf("scan communication row: %w", err)
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate communication rows: %w", err)
	}
	return out, nil
}

// Counts returns the total number of contacts and communications.
func (s *Store) Counts(ctx context.Context) (contacts, communications int64, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts;`).Scan(&contacts); err != nil {
		return 0, 0, fmt.Errorf("count contacts: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM communications;`).Scan(&communications); err != nil {
		return 0, 0, fmt.Errorf("count communications: %w", err)
	}
	return contacts, communications, nil
}

// rebind converts ? placeholders to $N for the Postgres dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func bootstrap(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
