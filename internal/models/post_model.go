package models

import "time"

type Post struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PostType     string    `db:"post_type" json:"post_type"`
	StorageKey   string    `db:"storage_key" json:"storage_key"`
	Bucket       string    `db:"bucket" json:"bucket"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Tags         []string  `db:"tags" json:"tags"`
	Privacy      string    `db:"privacy" json:"privacy"`
	ThumbnailKey string    `db:"thumbnail_key" json:"thumbnail_key"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	ContentType  string    `db:"content_type" json:"content_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PostTypeVideo = "video"
	PostTypeImage = "image"
	PostTypeText  = "text"
)

const (
	PrivacyPublic   = "public"
	PrivacyUnlisted = "unlisted"
	PrivacyPrivate  = "private"
	PrivacyMutual   = "mutual"
)

func ValidPrivacy(privacy string) bool {
	switch privacy {
	case PrivacyPublic, PrivacyUnlisted, PrivacyPrivate, PrivacyMutual:
		return true
	}
	return false
}
