package comments

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/pkg/utils"
)

const (
	// Re-fetch a day behind the newest local comment so late edits
	// still land; the upsert makes the overlap harmless.
	watermarkOverlap = 24 * time.Hour
	// First sync for a connection reaches back this far.
	initialLookback = 30 * 24 * time.Hour
)

// Syncer pulls remote comments into the local mirror. Upserts are
// keyed on (platform, external_id), so re-running a window only
// refreshes content; local moderation state survives every pass.
type Syncer struct {
	connections repository.ConnectionRepository
	jobs        repository.PublishJobRepository
	comments    repository.CommentRepository
	authors     repository.CommentAuthorRepository
	registry    *platforms.Registry
	secretKey   []byte
	now         func() time.Time
}

func NewSyncer(
	connections repository.ConnectionRepository,
	jobs repository.PublishJobRepository,
	comments repository.CommentRepository,
	authors repository.CommentAuthorRepository,
	registry *platforms.Registry,
	secretKey []byte) *Syncer {
	return &Syncer{
		connections: connections,
		jobs:        jobs,
		comments:    comments,
		authors:     authors,
		registry:    registry,
		secretKey:   secretKey,
		now:         time.Now,
	}
}

func (s *Syncer) SyncConnection(ctx context.Context, connectionID int64) error {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn == nil || !conn.IsActive {
		return nil
	}

	src := s.registry.CommentSource(conn.Platform)
	if src == nil {
		return nil
	}

	since, err := s.watermark(ctx, conn)
	if err != nil {
		return err
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, s.secretKey)
	if err != nil {
		return fmt.Errorf("decrypting access token: %w", err)
	}
	creds := platforms.Credentials{AccessToken: accessToken, AccountID: conn.AccountID}

	fetched, err := src.FetchComments(ctx, creds, conn.AccountID, since)
	if err != nil {
		return fmt.Errorf("fetching %s comments: %w", conn.Platform, err)
	}

	// Oldest first so parents usually exist before their replies
	// arrive; anything out of order heals on the next pass.
	sort.Slice(fetched, func(i, j int) bool {
		return fetched[i].PublishedAt.Before(fetched[j].PublishedAt)
	})

	for _, remote := range fetched {
		if err := s.upsertOne(ctx, conn, remote); err != nil {
			slog.Info(err.Error())
		}
	}

	return nil
}

func (s *Syncer) watermark(ctx context.Context, conn *models.PlatformConnection) (time.Time, error) {
	latest, err := s.comments.LatestPublishedAt(ctx, conn.Platform, conn.UserID)
	if err != nil {
		return time.Time{}, err
	}
	if latest != nil {
		return latest.Add(-watermarkOverlap), nil
	}
	return s.now().Add(-initialLookback), nil
}

func (s *Syncer) upsertOne(ctx context.Context, conn *models.PlatformConnection, remote platforms.CommentData) error {
	comment := &models.Comment{
		Platform:       conn.Platform,
		ExternalID:     remote.ExternalID,
		ExternalPostID: remote.ExternalPostID,
		Content:        remote.Content,
		PublishedAt:    remote.PublishedAt,
	}
	if remote.ExternalParentID != "" {
		comment.ExternalParentID = sql.NullString{String: remote.ExternalParentID, Valid: true}
	}

	if remote.AuthorExternalID != "" {
		authorID, err := s.authors.Upsert(ctx, &models.CommentAuthor{
			Platform:   conn.Platform,
			ExternalID: remote.AuthorExternalID,
			Name:       remote.AuthorName,
			AvatarURL:  remote.AuthorAvatarURL,
			ProfileURL: remote.AuthorProfileURL,
		})
		if err != nil {
			return err
		}
		comment.AuthorID = sql.NullInt64{Int64: authorID, Valid: true}
	}

	// Tie the comment back to the local post through the completed
	// job that produced the remote video.
	job, err := s.jobs.GetByPlatformVideoID(ctx, conn.Platform, remote.ExternalPostID)
	if err != nil {
		return err
	}
	if job != nil {
		comment.PostID = sql.NullInt64{Int64: job.PostID, Valid: true}
	}

	if remote.ExternalParentID != "" {
		parent, err := s.comments.GetByExternalID(ctx, conn.Platform, remote.ExternalParentID)
		if err != nil {
			return err
		}
		if parent != nil {
			comment.ParentID = sql.NullInt64{Int64: parent.ID, Valid: true}
		}
	}

	if _, err := s.comments.Upsert(ctx, comment); err != nil {
		return fmt.Errorf("upserting comment %s: %w", remote.ExternalID, err)
	}
	return nil
}
