package models

import (
	"database/sql"
	"time"
)

// CommentAuthor is an externally-sourced commenter, keyed by the
// (platform, external_id) natural key.
type CommentAuthor struct {
	ID         int64     `db:"id" json:"id"`
	Platform   string    `db:"platform" json:"platform"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Name       string    `db:"name" json:"name"`
	AvatarURL  string    `db:"avatar_url" json:"avatar_url"`
	ProfileURL string    `db:"profile_url" json:"profile_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Comment mirrors one remote comment. (platform, external_id) is the
// upsert idempotency key; is_resolved and is_hidden are local
// moderation state that sync never rewrites.
type Comment struct {
	ID               int64          `db:"id" json:"id"`
	Platform         string         `db:"platform" json:"platform"`
	ExternalID       string         `db:"external_id" json:"external_id"`
	ExternalPostID   string         `db:"external_post_id" json:"external_post_id"`
	ExternalParentID sql.NullString `db:"external_parent_id" json:"external_parent_id"`
	AuthorID         sql.NullInt64  `db:"author_id" json:"author_id"`
	PostID           sql.NullInt64  `db:"post_id" json:"post_id"`
	ParentID         sql.NullInt64  `db:"parent_id" json:"parent_id"`
	Content          string         `db:"content" json:"content"`
	PublishedAt      time.Time      `db:"published_at" json:"published_at"`
	IsResolved       bool           `db:"is_resolved" json:"is_resolved"`
	IsHidden         bool           `db:"is_hidden" json:"is_hidden"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
