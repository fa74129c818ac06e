package fixtures

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	errs "github.com/jrsteele09/go-auth-e2e/internal/errors"
)

// Store is where fixture rows land. The real implementation writes into
// the backend's SQLite file; the orchestrator can be tested against a
// fake instead of a file path.
type Store interface {
	UpsertUser(ctx context.Context, u User) error
	UpsertSession(ctx context.Context, s Session) error
	UpsertClientApp(ctx context.Context, c ClientApp) error
	Close() error
}

// SQLStore implements Store over the backend's SQLite database.
// Timestamps are stored as RFC3339 strings and redirect URIs as a JSON
// array, matching how the backend encodes those columns.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// fixtureSchema creates the three tables the seeder touches if the
// backend has not created them yet, so a fresh database file works.
const fixtureSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	discord_id TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL,
	avatar_url TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	last_login_at TEXT
);
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	token TEXT NOT NULL UNIQUE,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS client_apps (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	client_secret TEXT NOT NULL,
	redirect_uris TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// OpenSQLStore opens (creating if needed) the SQLite database at path.
// SQLite is single-writer and the seeder is the only writer here, so
// the pool is capped at one connection.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.Wrapf(err, "fixtures.OpenSQLStore %q", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(fixtureSchema); err != nil {
		db.Close()
		return nil, errs.Wrapf(err, "fixtures.OpenSQLStore ensure schema")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) UpsertUser(ctx context.Context, u User) error {
	query := `
		INSERT OR REPLACE INTO users (id, discord_id, username, avatar_url, created_at, updated_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID,
		u.DiscordID,
		u.Username,
		u.AvatarURL,
		u.CreatedAt.Format(time.RFC3339),
		u.UpdatedAt.Format(time.RFC3339),
		u.LastLoginAt.Format(time.RFC3339),
	)
	return errs.Wrapf(err, "upsert user")
}

func (s *SQLStore) UpsertSession(ctx context.Context, sess Session) error {
	query := `
		INSERT OR REPLACE INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		sess.ID,
		sess.UserID,
		sess.Token,
		sess.ExpiresAt.Format(time.RFC3339),
		sess.CreatedAt.Format(time.RFC3339),
	)
	return errs.Wrapf(err, "upsert session")
}

func (s *SQLStore) UpsertClientApp(ctx context.Context, c ClientApp) error {
	redirectURIs, err := json.Marshal(c.RedirectURIs)
	if err != nil {
		return errs.Wrapf(err, "marshal redirect_uris")
	}
	query := `
		INSERT OR REPLACE INTO client_apps (id, client_id, name, client_secret, redirect_uris, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		c.ID,
		c.ClientID,
		c.Name,
		c.SecretHash,
		string(redirectURIs),
		c.CreatedAt.Format(time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
	)
	return errs.Wrapf(err, "upsert client app")
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
