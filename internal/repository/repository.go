package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound sentinel
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS short_urls (
	id           BIGSERIAL PRIMARY KEY,
	original_url TEXT NOT NULL,
	short_code   TEXT NOT NULL UNIQUE,
	account_id   BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	share_token  TEXT UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_short_urls_account_id ON short_urls(account_id);

CREATE TABLE IF NOT EXISTS clicks (
	id               BIGSERIAL PRIMARY KEY,
	url_id           BIGINT NOT NULL REFERENCES short_urls(id) ON DELETE CASCADE,
	clicked_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	referrer         TEXT,
	user_agent       TEXT,
	client_ip        TEXT,
	operating_system TEXT,
	browser          TEXT,
	location         TEXT,
	country          TEXT,
	city             TEXT
);
CREATE INDEX IF NOT EXISTS idx_clicks_url_id_clicked_at ON clicks(url_id, clicked_at);

CREATE TABLE IF NOT EXISTS site_settings (
	id                   INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	registration_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	last_updated         TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the tables and indexes if they do not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case pgCode(err) == uniqueViolation:
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case pgCode(err) == foreignKeyViolation:
		// the referenced row was deleted concurrently
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
