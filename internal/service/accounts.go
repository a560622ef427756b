package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"shorturl/internal/apperr"
	"shorturl/internal/auth"
	"shorturl/internal/logging"
	"shorturl/internal/model"
	"shorturl/internal/repository"
)

// Register creates an account. Registration is always open while no account
// exists, and the first account is an admin.
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || password == "" {
		return nil, apperr.BadRequest("username and password are required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperr.BadRequest("password must be at most 72 bytes")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.BadRequest("invalid email address")
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.Repo.CountAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	if !settings.RegistrationEnabled && count > 0 {
		return nil, apperr.ErrRegistrationClosed
	}

	userTaken, emailTaken, err := s.Repo.AccountTaken(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check account: %w", err)
	}
	if userTaken {
		return nil, apperr.Conflict("username already registered")
	}
	if emailTaken {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &model.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      count == 0,
	}
	err = s.Repo.CreateAccount(ctx, a)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("username or email already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	logging.Ctx(ctx).Info().Int64("account_id", a.ID).Bool("admin", a.IsAdmin).Msg("account registered")
	return a, nil
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	a, err := s.Repo.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		return "", apperr.ErrUnauthorized
	}
	return s.Tokens.Issue(a.ID, a.Username)
}

// Authenticate resolves a bearer token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Account, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}
	a, err := s.Repo.GetAccount(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}
