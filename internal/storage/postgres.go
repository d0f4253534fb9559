package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
  id           BIGSERIAL PRIMARY KEY,
  phone_number TEXT NOT NULL UNIQUE,
  name         TEXT,
  updated_at   TIMESTAMPTZ NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS communications (
  id         BIGSERIAL PRIMARY KEY,
  contact_id BIGINT NOT NULL REFERENCES contacts(id),
  type       TEXT NOT NULL,
  text       TEXT,
  duration   BIGINT,
  timestamp  TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS communications_contact_id_idx ON communications(contact_id);`,
	`CREATE INDEX IF NOT EXISTS communications_created_at_idx ON communications(created_at);`,
}

// OpenPostgres opens a Postgres-backed store and ensures required tables
// exist. A non-empty credential is injected as the connection password.
func OpenPostgres(ctx context.Context, rawURL, credential string) (*Store, error) {
	dsn, err := postgresDSN(rawURL, credential)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := bootstrap(ctx, db, postgresSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: dialectPostgres}, nil
}

// postgresDSN rewrites the store URL so the credential becomes the connection
// password. The URL's own user is kept; "postgres" is assumed when absent.
func postgresDSN(rawURL, credential string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse store url: %w", err)
	}

	if credential != "" {
		user := ""
		if u.User != nil {
			user = u.User.Username()
		}
		if user == "" {
			user = "postgres"
		}
		u.User = url.UserPassword(user, credential)
	}

	return u.String(), nil
}
