package repository

import (
	"context"
	"database/sql"

	"shorturl/internal/model"
)

// InsertClick stores c and fills in ID and ClickedAt. A URL that no longer
// exists yields ErrNotFound.
func (r *Repo) InsertClick(ctx context.Context, c *model.Click) error {
	q := `INSERT INTO clicks
		(url_id, referrer, user_agent, client_ip, operating_system, browser, location, country, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, clicked_at`
	err := r.DB.QueryRowContext(ctx, q,
		c.URLID, c.Referrer, c.UserAgent, c.ClientIP, c.OperatingSystem,
		c.Browser, c.Location, c.Country, c.City,
	).Scan(&c.ID, &c.ClickedAt)
	return translate(err)
}

// ListClicks loads every click for a URL, oldest first.
func (r *Repo) ListClicks(ctx context.Context, urlID int64) ([]model.Click, error) {
	q := `SELECT id, url_id, clicked_at, referrer, user_agent, client_ip,
		operating_system, browser, location, country, city
		FROM clicks WHERE url_id = $1 ORDER BY clicked_at, id`
	rows, err := r.DB.QueryContext(ctx, q, urlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.Click
	for rows.Next() {
		var c model.Click
		var ref, ua, ip, os, browser, loc, country, city sql.NullString
		if err := rows.Scan(&c.ID, &c.URLID, &c.ClickedAt, &ref, &ua, &ip, &os, &browser, &loc, &country, &city); err != nil {
			return nil, err
		}
		c.Referrer = nullString(ref)
		c.UserAgent = nullString(ua)
		c.ClientIP = nullString(ip)
		c.OperatingSystem = nullString(os)
		c.Browser = nullString(browser)
		c.Location = nullString(loc)
		c.Country = nullString(country)
		c.City = nullString(city)
		res = append(res, c)
	}
	return res, rows.Err()
}
