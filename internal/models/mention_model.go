package models

import "time"

type Mention struct {
	ID             int64     `db:"id" json:"id"`
	PlatformID     int64     `db:"platform_id" json:"platform_id"`
	AuthorUsername string    `db:"author_username" json:"author_username"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	TimeAgo        string    `json:"time_ago"`
}
