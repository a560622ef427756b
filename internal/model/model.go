package model

import "time"

type Account struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type ShortURL struct {
	ID          int64     `db:"id" json:"id"`
	ShortCode   string    `db:"short_code" json:"short_code"`
	OriginalURL string    `db:"original_url" json:"original_url"`
	AccountID   int64     `db:"account_id" json:"user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	ShareToken  *string   `db:"share_token" json:"share_token,omitempty"`
	// ClickCount is computed from the clicks table on read.
	ClickCount int64 `db:"-" json:"click_count"`
}

// Click is one recorded resolution of a short code. Rows are never updated.
type Click struct {
	ID              int64     `db:"id" json:"id"`
	URLID           int64     `db:"url_id" json:"url_id"`
	ClickedAt       time.Time `db:"clicked_at" json:"clicked_at"`
	Referrer        *string   `db:"referrer" json:"referrer,omitempty"`
	UserAgent       *string   `db:"user_agent" json:"user_agent,omitempty"`
	ClientIP        *string   `db:"client_ip" json:"client_ip,omitempty"`
	OperatingSystem *string   `db:"operating_system" json:"operating_system,omitempty"`
	Browser         *string   `db:"browser" json:"browser,omitempty"`
	Location        *string   `db:"location" json:"location,omitempty"`
	Country         *string   `db:"country" json:"country,omitempty"`
	City            *string   `db:"city" json:"city,omitempty"`
}

type SiteSettings struct {
	ID                  int       `db:"id" json:"id"`
	RegistrationEnabled bool      `db:"registration_enabled" json:"registration_enabled"`
	LastUpdated         time.Time `db:"last_updated" json:"last_updated"`
}

// RequestMeta is the subset of an incoming redirect request the click recorder needs.
type RequestMeta struct {
	Referrer     string
	UserAgent    string
	ForwardedFor string
	RemoteAddr   string
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type URLStats struct {
	URLID            int64            `json:"url_id"`
	ShortCode        string           `json:"short_code"`
	OriginalURL      string           `json:"original_url"`
	TotalClicks      int64            `json:"total_clicks"`
	Referrers        map[string]int64 `json:"referrers"`
	Browsers         map[string]int64 `json:"browsers"`
	OperatingSystems map[string]int64 `json:"operating_systems"`
	Locations        map[string]int64 `json:"locations"`
	Countries        map[string]int64 `json:"countries"`
	ClicksOverTime   []DayCount       `json:"clicks_over_time"`
}

// StrPtr returns nil for an empty string.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
