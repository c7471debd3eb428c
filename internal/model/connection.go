package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RemoteProjection memoizes the IDs of remote containers already provisioned
// for a user (e.g. the home page and goals database mirrored into Notion).
// Stored as a JSON column so provisioning happens at most once per container
// kind per user.
type RemoteProjection map[string]string

func (p RemoteProjection) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *RemoteProjection) Scan(src any) error {
	if src == nil {
		*p = RemoteProjection{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported remote_projection type %T", src)
	}
	if len(data) == 0 {
		*p = RemoteProjection{}
		return nil
	}
	return json.Unmarshal(data, p)
}

// Connection is the per-user per-platform credential and sync-state record.
// Exactly one row exists per (user_id, platform); disconnect clears the
// credential fields but never deletes the row.
type Connection struct {
	ID                string           `db:"id"`
	UserID            string           `db:"user_id"`
	Platform          string           `db:"platform"`
	AccessToken       *string          `db:"access_token"`
	RefreshToken      *string          `db:"refresh_token"`
	ExpiresAt         *time.Time       `db:"expires_at"`
	Connected         bool             `db:"connected"`
	ProfileIdentifier *string          `db:"profile_identifier"`
	LastSync          *time.Time       `db:"last_sync"`
	LastError         *string          `db:"last_error"`
	RemoteProjection  RemoteProjection `db:"remote_projection"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

func (c *Connection) HasCredential() bool {
	return c.AccessToken != nil && *c.AccessToken != ""
}

// TokenExpired reports whether the stored access token has passed its expiry.
// Connections without an expiry never expire (the platform has no such
// concept, e.g. username-only judges).
func (c *Connection) TokenExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

func (c *Connection) Identifier() string {
	if c.ProfileIdentifier == nil {
		return ""
	}
	return *c.ProfileIdentifier
}
