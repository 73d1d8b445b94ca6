package models

import "time"

// PlatformConnection is one linked publishing account. The
// (user_id, platform) pair is unique; tokens are stored AES-GCM
// encrypted.
type PlatformConnection struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Platform        string    `db:"platform" json:"platform"`
	AccountID       string    `db:"account_id" json:"account_id"`
	AccountName     string    `db:"account_name" json:"account_name"`
	AccountUsername string    `db:"account_username" json:"account_username"`
	ProfilePicture  string    `db:"profile_picture_url" json:"profile_picture"`
	AccessToken     string    `db:"access_token" json:"-"`
	RefreshToken    string    `db:"refresh_token" json:"-"`
	TokenExpiresAt  time.Time `db:"token_expires_at" json:"token_expires_at"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PlatformYoutube  = "youtube"
	PlatformTiktok   = "tiktok"
	PlatformVimeo    = "vimeo"
	PlatformLinkedin = "linkedin"
)

func KnownPlatform(platform string) bool {
	switch platform {
	case PlatformYoutube, PlatformTiktok, PlatformVimeo, PlatformLinkedin:
		return true
	}
	return false
}
