package models

import "time"

type Post struct {
	ID           int64           `db:"id" json:"id"`
	UserID       int64           `db:"user_id" json:"user_id"`
	Title        string          `db:"title" json:"title"`
	Content      string          `db:"content" json:"content"`
	Type         string          `db:"type" json:"type"`
	Status       string          `db:"status" json:"status"`
	ScheduledFor *time.Time      `db:"scheduled_for" json:"scheduled_for,omitempty"`
	PublishedAt  *time.Time      `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	Platforms    []*PostPlatform `json:"platforms,omitempty"`
	MediaIDs     []int64         `json:"media_ids,omitempty"`
}

// PostPlatform is the per-platform delivery row of a post.
type PostPlatform struct {
	PostID         int64      `db:"post_id" json:"post_id"`
	PlatformID     string     `db:"platform_id" json:"platform_id"`
	Status         string     `db:"status" json:"status"`
	ExternalPostID string     `db:"external_post_id" json:"external_post_id,omitempty"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const PostTypeSocial = "social"

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)
