package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shorturl/internal/apperr"
	"shorturl/internal/model"
	"shorturl/internal/service"
)

// fakeService implements ShortenerService over maps. Tokens are
// "token-<id>".
type fakeService struct {
	mu        sync.Mutex
	accounts  map[int64]*model.Account
	passwords map[string]string
	urls      map[string]*model.ShortURL
	metas     []model.RequestMeta
	settings  model.SiteSettings
	nextID    int64
	recordErr error
	readyErr  error
}

func newFakeService() *fakeService {
	return &fakeService{
		accounts:  map[int64]*model.Account{},
		passwords: map[string]string{},
		urls:      map[string]*model.ShortURL{},
		settings:  model.SiteSettings{ID: 1, RegistrationEnabled: true},
	}
}

func (f *fakeService) addAccount(username string, admin bool) (*model.Account, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a := &model.Account{ID: f.nextID, Username: username, Email: username + "@example.com", IsAdmin: admin}
	f.accounts[a.ID] = a
	return a, fmt.Sprintf("token-%d", a.ID)
}

func (f *fakeService) addURL(owner int64, code, dest string) *model.ShortURL {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := &model.ShortURL{ID: f.nextID, ShortCode: code, OriginalURL: dest, AccountID: owner, CreatedAt: time.Now()}
	f.urls[code] = m
	return m
}

func (f *fakeService) owned(owner int64, code string) (*model.ShortURL, error) {
	m, ok := f.urls[code]
	if !ok || m.AccountID != owner {
		return nil, apperr.ErrNotFound
	}
	return m, nil
}

func (f *fakeService) CreateURL(_ context.Context, ownerID int64, dest string) (*model.ShortURL, error) {
	if dest == "not a url" {
		return nil, apperr.BadRequest("invalid url")
	}
	return f.addURL(ownerID, fmt.Sprintf("c%05d", len(f.urls)), dest), nil
}

func (f *fakeService) ListURLs(_ context.Context, ownerID int64, offset, limit int) ([]model.ShortURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ShortURL
	for _, m := range f.urls {
		if m.AccountID == ownerID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeService) GetURL(_ context.Context, ownerID int64, code string) (*model.ShortURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owned(ownerID, code)
}

func (f *fakeService) DeleteURL(_ context.Context, ownerID int64, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(ownerID, code); err != nil {
		return err
	}
	delete(f.urls, code)
	return nil
}

func (f *fakeService) ShareURL(_ context.Context, ownerID int64, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.owned(ownerID, code)
	if err != nil {
		return "", err
	}
	if m.ShareToken == nil {
		tok := "share-" + code
		m.ShareToken = &tok
	}
	return *m.ShareToken, nil
}

func (f *fakeService) stats(m *model.ShortURL) *model.URLStats {
	return &model.URLStats{
		URLID:          m.ID,
		ShortCode:      m.ShortCode,
		OriginalURL:    m.OriginalURL,
		TotalClicks:    m.ClickCount,
		Referrers:      map[string]int64{},
		ClicksOverTime: []model.DayCount{},
	}
}

func (f *fakeService) Stats(_ context.Context, ownerID int64, code string) (*model.URLStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.owned(ownerID, code)
	if err != nil {
		return nil, err
	}
	return f.stats(m), nil
}

func (f *fakeService) SharedStats(_ context.Context, code, token string) (*model.URLStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.urls[code]
	if !ok || m.ShareToken == nil || *m.ShareToken != token {
		return nil, apperr.ErrNotFound
	}
	return f.stats(m), nil
}

func (f *fakeService) ResolveAndRecord(_ context.Context, code string, meta model.RequestMeta) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.urls[code]
	if !ok {
		return "", apperr.ErrNotFound
	}
	if f.recordErr != nil {
		return m.OriginalURL, fmt.Errorf("%w: %v", service.ErrClickNotRecorded, f.recordErr)
	}
	f.metas = append(f.metas, meta)
	m.ClickCount++
	return m.OriginalURL, nil
}

func (f *fakeService) Register(_ context.Context, username, email, password string) (*model.Account, error) {
	f.mu.Lock()
	first := len(f.accounts) == 0
	if !first && !f.settings.RegistrationEnabled {
		f.mu.Unlock()
		return nil, apperr.ErrRegistrationClosed
	}
	for _, a := range f.accounts {
		if a.Username == username {
			f.mu.Unlock()
			return nil, apperr.Conflict("username already registered")
		}
	}
	f.mu.Unlock()
	a, _ := f.addAccount(username, first)
	a.Email = email
	f.passwords[username] = password
	return a, nil
}

func (f *fakeService) Login(_ context.Context, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[username]; !ok || pw != password {
		return "", apperr.ErrUnauthorized
	}
	for _, a := range f.accounts {
		if a.Username == username {
			return fmt.Sprintf("token-%d", a.ID), nil
		}
	}
	return "", apperr.ErrUnauthorized
}

func (f *fakeService) Authenticate(_ context.Context, token string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var id int64
	if _, err := fmt.Sscanf(token, "token-%d", &id); err != nil {
		return nil, apperr.ErrUnauthorized
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	return a, nil
}

func (f *fakeService) Settings(context.Context) (*model.SiteSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.settings
	return &st, nil
}

func (f *fakeService) UpdateSettings(_ context.Context, actor *model.Account, patch service.SettingsPatch) (*model.SiteSettings, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, apperr.ErrForbidden
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if patch.RegistrationEnabled != nil {
		f.settings.RegistrationEnabled = *patch.RegistrationEnabled
		f.settings.LastUpdated = time.Now()
	}
	st := f.settings
	return &st, nil
}

func (f *fakeService) Ready(context.Context) error { return f.readyErr }
