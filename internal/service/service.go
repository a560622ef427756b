package service

import (
	"context"
	"time"

	"shorturl/internal/auth"
	"shorturl/internal/cache"
	"shorturl/internal/enrich"
	"shorturl/internal/model"
	"shorturl/internal/util"
)

// Store is the persistence the service needs. *repository.Repo implements it.
type Store interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateURL(ctx context.Context, m *model.ShortURL) error
	GetURLByCode(ctx context.Context, code string) (*model.ShortURL, error)
	GetOwnedURL(ctx context.Context, code string, accountID int64) (*model.ShortURL, error)
	GetSharedURL(ctx context.Context, code, token string) (*model.ShortURL, error)
	ListURLs(ctx context.Context, accountID int64, offset, limit int) ([]model.ShortURL, error)
	DeleteURL(ctx context.Context, code string, accountID int64) error
	SetShareToken(ctx context.Context, urlID int64, token string) (string, error)

	InsertClick(ctx context.Context, c *model.Click) error
	ListClicks(ctx context.Context, urlID int64) ([]model.Click, error)

	CountAccounts(ctx context.Context) (int64, error)
	AccountTaken(ctx context.Context, username, email string) (bool, bool, error)
	CreateAccount(ctx context.Context, a *model.Account) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	GetSettings(ctx context.Context) (*model.SiteSettings, error)
	SetRegistrationEnabled(ctx context.Context, enabled bool) (*model.SiteSettings, error)

	Ping(ctx context.Context) error
}

// URLCache is satisfied by *cache.URLCache, including a nil one.
type URLCache interface {
	Get(ctx context.Context, code string) (*cache.Entry, error)
	Set(ctx context.Context, code string, e cache.Entry) error
	Delete(ctx context.Context, code string) error
}

type Options struct {
	CodeLength    int
	MaxAttempts   int
	StatsLocation *time.Location
	// RecordTimeout bounds the click insert on the redirect path.
	RecordTimeout time.Duration
}

type Service struct {
	Repo     Store
	Cache    URLCache
	Enricher *enrich.Enricher
	Tokens   *auth.Tokens

	ShortLen      int
	MaxAttempts   int
	StatsLoc      *time.Location
	RecordTimeout time.Duration

	newCode func(length int) (string, error)
}

func NewService(r Store, c URLCache, e *enrich.Enricher, t *auth.Tokens, opts Options) *Service {
	s := &Service{
		Repo: r, Cache: c, Enricher: e, Tokens: t,
		ShortLen:      opts.CodeLength,
		MaxAttempts:   opts.MaxAttempts,
		StatsLoc:      opts.StatsLocation,
		RecordTimeout: opts.RecordTimeout,
		newCode:       util.GenerateShortCode,
	}
	if s.Cache == nil {
		s.Cache = (*cache.URLCache)(nil)
	}
	if s.ShortLen <= 0 {
		s.ShortLen = util.DefaultCodeLength
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 10
	}
	if s.StatsLoc == nil {
		s.StatsLoc = time.Local
	}
	if s.RecordTimeout <= 0 {
		s.RecordTimeout = 5 * time.Second
	}
	return s
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}
