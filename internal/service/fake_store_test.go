package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"shorturl/internal/model"
	"shorturl/internal/repository"
)

// memStore is an in-memory Store with the same uniqueness and cascade rules as the schema.
type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	urls     map[string]*model.ShortURL
	clicks   []model.Click
	accounts []*model.Account
	settings *model.SiteSettings

	insertClickErr error
	createURLHook  func(m *model.ShortURL) error
	lookups        int
}

func newMemStore() *memStore {
	return &memStore{
		now:  time.Now,
		urls: make(map[string]*model.ShortURL),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[code]
	return ok, nil
}

func (s *memStore) CreateURL(_ context.Context, m *model.ShortURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createURLHook != nil {
		if err := s.createURLHook(m); err != nil {
			return err
		}
	}
	if _, ok := s.urls[m.ShortCode]; ok {
		return repository.ErrDuplicate
	}
	m.ID = s.id()
	m.CreatedAt = s.now()
	cp := *m
	s.urls[m.ShortCode] = &cp
	return nil
}

func (s *memStore) countLocked(urlID int64) int64 {
	var n int64
	for _, c := range s.clicks {
		if c.URLID == urlID {
			n++
		}
	}
	return n
}

func (s *memStore) urlIDExistsLocked(id int64) bool {
	for _, m := range s.urls {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (s *memStore) GetURLByCode(_ context.Context, code string) (*model.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	m, ok := s.urls[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) GetOwnedURL(_ context.Context, code string, accountID int64) (*model.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.urls[code]
	if !ok || m.AccountID != accountID {
		return nil, repository.ErrNotFound
	}
	cp := *m
	cp.ClickCount = s.countLocked(m.ID)
	return &cp, nil
}

func (s *memStore) GetSharedURL(_ context.Context, code, token string) (*model.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.urls[code]
	if !ok || m.ShareToken == nil || *m.ShareToken != token {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) ListURLs(_ context.Context, accountID int64, offset, limit int) ([]model.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.ShortURL
	for _, m := range s.urls {
		if m.AccountID == accountID {
			cp := *m
			cp.ClickCount = s.countLocked(m.ID)
			all = append(all, cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []model.ShortURL{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *memStore) DeleteURL(_ context.Context, code string, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.urls[code]
	if !ok || m.AccountID != accountID {
		return repository.ErrNotFound
	}
	delete(s.urls, code)
	kept := s.clicks[:0]
	for _, c := range s.clicks {
		if c.URLID != m.ID {
			kept = append(kept, c)
		}
	}
	s.clicks = kept
	return nil
}

func (s *memStore) SetShareToken(_ context.Context, urlID int64, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.urls {
		if m.ID == urlID {
			if m.ShareToken == nil {
				m.ShareToken = &token
			}
			return *m.ShareToken, nil
		}
	}
	return "", repository.ErrNotFound
}

func (s *memStore) InsertClick(_ context.Context, c *model.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertClickErr != nil {
		return s.insertClickErr
	}
	if !s.urlIDExistsLocked(c.URLID) {
		// foreign key on clicks.url_id
		return repository.ErrNotFound
	}
	c.ID = s.id()
	if c.ClickedAt.IsZero() {
		c.ClickedAt = s.now()
	}
	s.clicks = append(s.clicks, *c)
	return nil
}

func (s *memStore) ListClicks(_ context.Context, urlID int64) ([]model.Click, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Click
	for _, c := range s.clicks {
		if c.URLID == urlID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) clicksFor(code string) []model.Click {
	s.mu.Lock()
	m, ok := s.urls[code]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	out, _ := s.ListClicks(context.Background(), m.ID)
	return out
}

func (s *memStore) CountAccounts(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.accounts)), nil
}

func (s *memStore) AccountTaken(_ context.Context, username, email string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var u, e bool
	for _, a := range s.accounts {
		u = u || a.Username == username
		e = e || a.Email == email
	}
	return u, e, nil
}

func (s *memStore) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.accounts {
		if x.Username == a.Username || x.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	a.ID = s.id()
	a.CreatedAt = s.now()
	cp := *a
	s.accounts = append(s.accounts, &cp)
	return nil
}

func (s *memStore) GetAccount(_ context.Context, id int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetSettings(context.Context) (*model.SiteSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		s.settings = &model.SiteSettings{ID: 1, RegistrationEnabled: true, LastUpdated: s.now()}
	}
	cp := *s.settings
	return &cp, nil
}

func (s *memStore) SetRegistrationEnabled(_ context.Context, enabled bool) (*model.SiteSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &model.SiteSettings{ID: 1, RegistrationEnabled: enabled, LastUpdated: s.now()}
	cp := *s.settings
	return &cp, nil
}

func (s *memStore) Ping(context.Context) error { return nil }
