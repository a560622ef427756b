package repository

import (
	"context"

	"shorturl/internal/model"
)

const accountColumns = `id, username, email, password_hash, is_admin, created_at`

func scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsAdmin, &a.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *Repo) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

// AccountTaken reports which of username and email are already registered.
func (r *Repo) AccountTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	q := `SELECT
		EXISTS(SELECT 1 FROM accounts WHERE username = $1),
		EXISTS(SELECT 1 FROM accounts WHERE email = $2)`
	err = r.DB.QueryRowContext(ctx, q, username, email).Scan(&usernameTaken, &emailTaken)
	return usernameTaken, emailTaken, err
}

func (r *Repo) CreateAccount(ctx context.Context, a *model.Account) error {
	q := `INSERT INTO accounts (username, email, password_hash, is_admin) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, q, a.Username, a.Email, a.PasswordHash, a.IsAdmin).Scan(&a.ID, &a.CreatedAt)
	return translate(err)
}

func (r *Repo) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *Repo) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
}
