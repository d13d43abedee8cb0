package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

const (
	SyncRealtime = "realtime"
	SyncHourly   = "hourly"
	SyncDaily    = "daily"
)

type Notifications struct {
	Mentions bool `json:"mentions"`
	Messages bool `json:"messages"`
}

// ConnectedPlatform is the stored connection of one user to one platform.
// Tokens are opaque: they are stored and forwarded, never parsed.
type ConnectedPlatform struct {
	ID             int64         `db:"id" json:"id"`
	UserID         int64         `db:"user_id" json:"user_id"`
	PlatformID     string        `db:"platform_id" json:"platform_id"`
	Name           string        `db:"name" json:"name"`
	Icon           string        `db:"icon" json:"icon"`
	AccountName    string        `db:"account_name" json:"account_name"`
	AccountID      string        `db:"account_id" json:"account_id"`
	AccessToken    string        `db:"access_token" json:"-"`
	RefreshToken   string        `db:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time    `db:"token_expires_at" json:"token_expires_at,omitempty"`
	IsConnected    bool          `db:"is_connected" json:"is_connected"`
	LastSync       *time.Time    `db:"last_sync" json:"last_sync,omitempty"`
	SyncFrequency  string        `db:"sync_frequency" json:"sync_frequency"`
	Notifications  Notifications `json:"notifications"`
	Metadata       Metadata      `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Metadata holds provider specific data such as page lists or linked
// business account ids. Stored as JSONB.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("metadata: unsupported column type")
	}
	return json.Unmarshal(b, m)
}

// String returns the string value stored under key, or "".
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
