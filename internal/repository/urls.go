package repository

import (
	"context"
	"database/sql"

	"shorturl/internal/model"
)

const urlColumns = `u.id, u.short_code, u.original_url, u.account_id, u.created_at, u.share_token`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanURL(row rowScanner, extra ...any) (*model.ShortURL, error) {
	var m model.ShortURL
	var share sql.NullString
	dest := append([]any{&m.ID, &m.ShortCode, &m.OriginalURL, &m.AccountID, &m.CreatedAt, &share}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.ShareToken = nullString(share)
	return &m, nil
}

func (r *Repo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM short_urls WHERE short_code = $1)`, code).Scan(&exists)
	return exists, err
}

// CreateURL inserts m and fills in ID and CreatedAt. A taken short code yields ErrDuplicate.
func (r *Repo) CreateURL(ctx context.Context, m *model.ShortURL) error {
	q := `INSERT INTO short_urls (short_code, original_url, account_id) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, q, m.ShortCode, m.OriginalURL, m.AccountID).Scan(&m.ID, &m.CreatedAt)
	return translate(err)
}

// GetURLByCode looks up a code regardless of owner; used by the public redirect.
func (r *Repo) GetURLByCode(ctx context.Context, code string) (*model.ShortURL, error) {
	q := `SELECT ` + urlColumns + ` FROM short_urls u WHERE u.short_code = $1`
	m, err := scanURL(r.DB.QueryRowContext(ctx, q, code))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

// GetOwnedURL returns ErrNotFound both for unknown codes and codes owned by someone else.
func (r *Repo) GetOwnedURL(ctx context.Context, code string, accountID int64) (*model.ShortURL, error) {
	q := `SELECT ` + urlColumns + `, (SELECT COUNT(*) FROM clicks c WHERE c.url_id = u.id)
		FROM short_urls u WHERE u.short_code = $1 AND u.account_id = $2`
	var count int64
	m, err := scanURL(r.DB.QueryRowContext(ctx, q, code, accountID), &count)
	if err != nil {
		return nil, translate(err)
	}
	m.ClickCount = count
	return m, nil
}

func (r *Repo) GetSharedURL(ctx context.Context, code, token string) (*model.ShortURL, error) {
	q := `SELECT ` + urlColumns + ` FROM short_urls u WHERE u.short_code = $1 AND u.share_token = $2`
	m, err := scanURL(r.DB.QueryRowContext(ctx, q, code, token))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

func (r *Repo) ListURLs(ctx context.Context, accountID int64, offset, limit int) ([]model.ShortURL, error) {
	q := `SELECT ` + urlColumns + `, COUNT(c.id)
		FROM short_urls u
		LEFT JOIN clicks c ON c.url_id = u.id
		WHERE u.account_id = $1
		GROUP BY u.id
		ORDER BY u.created_at DESC, u.id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, q, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make([]model.ShortURL, 0, limit)
	for rows.Next() {
		var count int64
		m, err := scanURL(rows, &count)
		if err != nil {
			return nil, err
		}
		m.ClickCount = count
		res = append(res, *m)
	}
	return res, rows.Err()
}

// DeleteURL removes an owned URL; clicks go with it via ON DELETE CASCADE.
func (r *Repo) DeleteURL(ctx context.Context, code string, accountID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM short_urls WHERE short_code = $1 AND account_id = $2`, code, accountID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetShareToken assigns token unless the URL already has one, and returns the stored token.
func (r *Repo) SetShareToken(ctx context.Context, urlID int64, token string) (string, error) {
	q := `UPDATE short_urls SET share_token = COALESCE(share_token, $2) WHERE id = $1 RETURNING share_token`
	var stored string
	if err := r.DB.QueryRowContext(ctx, q, urlID, token).Scan(&stored); err != nil {
		return "", translate(err)
	}
	return stored, nil
}
