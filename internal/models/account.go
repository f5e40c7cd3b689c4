package models

import "time"

// M3UAccount represents a source account (one M3U playlist URL).
type M3UAccount struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	URL         string     `json:"url,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	Enabled     bool       `json:"enabled"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}
