package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/publora/publora/configs"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/queue"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/pkg/utils"
)

type CommentService interface {
	ListByPost(ctx context.Context, userID, postID int64) ([]*models.Comment, error)
	Reply(ctx context.Context, userID, commentID int64, text string) error
	Resolve(ctx context.Context, userID, commentID int64, resolved bool) error
	Hide(ctx context.Context, userID, commentID int64, hidden bool) error
	Delete(ctx context.Context, userID, commentID int64) error
	RequestSync(ctx context.Context, userID, connectionID int64) error
}

type commentService struct {
	cfg      config.Config
	c        repository.CommentRepository
	p        repository.PostRepository
	pc       repository.ConnectionRepository
	registry *platforms.Registry
	enqueue  func(connectionID int64) error
}

func NewCommentService(cfg config.Config, c repository.CommentRepository, p repository.PostRepository, pc repository.ConnectionRepository, registry *platforms.Registry, asynqClient *asynq.Client) CommentService {
	return &commentService{
		cfg:      cfg,
		c:        c,
		p:        p,
		pc:       pc,
		registry: registry,
		enqueue: func(connectionID int64) error {
			return queue.EnqueueCommentSync(asynqClient, connectionID)
		},
	}
}

func (s *commentService) ListByPost(ctx context.Context, userID, postID int64) ([]*models.Comment, error) {
	isValid, err := s.p.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.c.ListByPostID(ctx, postID)
}

// getOwned loads the comment and proves the caller owns the post it
// hangs off. Comments not yet linked to a local post are invisible
// through this API.
func (s *commentService) getOwned(ctx context.Context, userID, commentID int64) (*models.Comment, error) {
	comment, err := s.c.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil || !comment.PostID.Valid {
		err = errors.New("comment doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.p.CheckByUserID(ctx, comment.PostID.Int64, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("comment doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return comment, nil
}

func (s *commentService) commentSource(ctx context.Context, userID int64, comment *models.Comment) (platforms.CommentSource, platforms.Credentials, error) {
	source := s.registry.CommentSource(comment.Platform)
	if source == nil {
		return nil, platforms.Credentials{}, fmt.Errorf("platform %s doesn't support comment actions", comment.Platform)
	}

	conn, err := s.pc.GetByUserAndPlatform(ctx, userID, comment.Platform)
	if err != nil {
		return nil, platforms.Credentials{}, err
	}
	if conn == nil || !conn.IsActive {
		err = errors.New("no active connection for platform")
		slog.Info(err.Error())
		return nil, platforms.Credentials{}, err
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, platforms.Credentials{}, err
	}

	return source, platforms.Credentials{AccessToken: accessToken, AccountID: conn.AccountID}, nil
}

func (s *commentService) Reply(ctx context.Context, userID, commentID int64, text string) error {
	if text == "" {
		err := errors.New("reply text is empty")
		slog.Info(err.Error())
		return err
	}

	comment, err := s.getOwned(ctx, userID, commentID)
	if err != nil {
		return err
	}

	source, creds, err := s.commentSource(ctx, userID, comment)
	if err != nil {
		return err
	}

	externalID, err := source.Reply(ctx, creds, comment.ExternalID, text)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	// Mirror the reply locally so it shows up before the next sync.
	reply := &models.Comment{
		Platform:         comment.Platform,
		ExternalID:       externalID,
		ExternalPostID:   comment.ExternalPostID,
		ExternalParentID: sql.NullString{String: comment.ExternalID, Valid: true},
		PostID:           comment.PostID,
		ParentID:         sql.NullInt64{Int64: comment.ID, Valid: true},
		Content:          text,
		PublishedAt:      time.Now(),
	}
	if _, err := s.c.Upsert(ctx, reply); err != nil {
		slog.Info(err.Error())
	}
	return nil
}

func (s *commentService) Resolve(ctx context.Context, userID, commentID int64, resolved bool) error {
	comment, err := s.getOwned(ctx, userID, commentID)
	if err != nil {
		return err
	}
	return s.c.SetResolved(ctx, comment.ID, resolved)
}

func (s *commentService) Hide(ctx context.Context, userID, commentID int64, hidden bool) error {
	comment, err := s.getOwned(ctx, userID, commentID)
	if err != nil {
		return err
	}
	return s.c.SetHidden(ctx, comment.ID, hidden)
}

// Delete removes the comment remotely, then locally. A remote failure
// aborts so the row never lies about platform state.
func (s *commentService) Delete(ctx context.Context, userID, commentID int64) error {
	comment, err := s.getOwned(ctx, userID, commentID)
	if err != nil {
		return err
	}

	source, creds, err := s.commentSource(ctx, userID, comment)
	if err != nil {
		return err
	}

	if err := source.DeleteComment(ctx, creds, comment.ExternalID); err != nil {
		slog.Info(err.Error())
		return err
	}

	return s.c.Remove(ctx, comment.ID)
}

// RequestSync enqueues an out-of-band comments:sync for the
// connection, same task the 15m cron fans out.
func (s *commentService) RequestSync(ctx context.Context, userID, connectionID int64) error {
	isValid, err := s.pc.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("connection doesn't exist")
		slog.Info(err.Error())
		return err
	}

	conn, err := s.pc.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if s.registry.CommentSource(conn.Platform) == nil {
		err = errors.New("platform doesn't support comments")
		slog.Info(err.Error())
		return err
	}

	return s.enqueue(connectionID)
}
