package platforms

import (
	"context"
	"time"
)

// Credentials carries a decrypted access token plus the
// platform-native account id (channel id, open id, person URN).
type Credentials struct {
	AccessToken string
	AccountID   string
}

// Asset is a storage-side reference to the bytes being published. URL
// is a presigned, time-limited read URL; adapters decide whether to
// buffer, stream, or hand the URL to the platform directly.
type Asset struct {
	URL         string
	ContentType string
	Size        int64
}

// Metadata is the platform-neutral content description. Each adapter
// maps Privacy to its own vocabulary and applies PublishAt only when
// the platform supports native scheduling.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
	PublishAt   *time.Time
}

type UploadResult struct {
	RemoteID  string
	RemoteURL string
	// Deferred means the platform accepted the bytes but is still
	// processing; RemoteID is a publish handle for CheckUploadStatus.
	Deferred bool
}

type VideoStats struct {
	RemoteID string
	Views    int64
	Likes    int64
	Comments int64
	Shares   int64
}

// CommentData is one remote comment, top-level or reply. Replies carry
// their parent's external id so the reconciler can rebuild threads.
type CommentData struct {
	ExternalID       string
	ExternalParentID string
	ExternalPostID   string
	AuthorExternalID string
	AuthorName       string
	AuthorAvatarURL  string
	AuthorProfileURL string
	Content          string
	PublishedAt      time.Time
}

// PublishStatus is the result of polling a deferred upload.
type PublishStatus struct {
	Done       bool
	Failed     bool
	FailReason string
	RemoteID   string
	RemoteURL  string
}

// Adapter is the uniform capability set every platform implements.
type Adapter interface {
	Name() string
	// NativeScheduling reports whether the platform itself can hold a
	// future publish time, making local jobs platform_scheduled.
	NativeScheduling() bool
	Upload(ctx context.Context, creds Credentials, asset Asset, meta Metadata) (*UploadResult, error)
	// Update mutates metadata on an existing remote object; it never
	// re-uploads bytes.
	Update(ctx context.Context, creds Credentials, remoteID string, meta Metadata) (*UploadResult, error)
	FetchStats(ctx context.Context, creds Credentials, remoteIDs []string) ([]VideoStats, error)
	// Delete is best-effort and idempotent: an already-gone remote id
	// is success.
	Delete(ctx context.Context, creds Credentials, remoteID string) error
}

// CommentSource is implemented by platforms whose comments we sync.
type CommentSource interface {
	FetchComments(ctx context.Context, creds Credentials, ownerID string, since time.Time) ([]CommentData, error)
	Reply(ctx context.Context, creds Credentials, parentExternalID, text string) (string, error)
	DeleteComment(ctx context.Context, creds Credentials, externalID string) error
}

// StatusPoller is implemented by platforms with deferred processing.
type StatusPoller interface {
	CheckUploadStatus(ctx context.Context, creds Credentials, handle string) (*PublishStatus, error)
}
