package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/publora/publora/internal/models"
)

type CommentRepository interface {
	// Upsert inserts the comment or, if the (platform, external_id)
	// row already exists, refreshes content only. Moderation flags are
	// never written on conflict.
	Upsert(ctx context.Context, comment *models.Comment) (int64, error)
	GetByExternalID(ctx context.Context, platform, externalID string) (*models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Comment, error)
	LatestPublishedAt(ctx context.Context, platform string, connectionUserID int64) (*time.Time, error)
	SetResolved(ctx context.Context, id int64, resolved bool) error
	SetHidden(ctx context.Context, id int64, hidden bool) error
	Remove(ctx context.Context, id int64) error
}

type commentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentColumns = `id, platform, external_id, external_post_id, external_parent_id, author_id, post_id, parent_id, content, published_at, is_resolved, is_hidden, created_at, updated_at`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.Platform, &c.ExternalID, &c.ExternalPostID, &c.ExternalParentID,
		&c.AuthorID, &c.PostID, &c.ParentID, &c.Content, &c.PublishedAt,
		&c.IsResolved, &c.IsHidden, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// commentUpsertQuery refreshes remote-owned fields on conflict and
// leaves the local moderation columns (is_resolved, is_hidden) alone,
// so a sync never undoes a resolve or hide.
const commentUpsertQuery = `
		INSERT INTO comments (
			platform, external_id, external_post_id, external_parent_id,
			author_id, post_id, parent_id, content, published_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (platform, external_id) DO UPDATE SET
			content = EXCLUDED.content,
			parent_id = COALESCE(comments.parent_id, EXCLUDED.parent_id),
			post_id = COALESCE(comments.post_id, EXCLUDED.post_id),
			updated_at = NOW()
		RETURNING id
	`

func (r *commentRepository) Upsert(ctx context.Context, comment *models.Comment) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, commentUpsertQuery, comment.Platform, comment.ExternalID,
		comment.ExternalPostID, comment.ExternalParentID, comment.AuthorID,
		comment.PostID, comment.ParentID, comment.Content, comment.PublishedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *commentRepository) GetByExternalID(ctx context.Context, platform, externalID string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE platform = $1 AND external_id = $2`
	comment, err := scanComment(r.db.QueryRowContext(ctx, query, platform, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return comment, nil
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return comment, nil
}

func (r *commentRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1 AND is_hidden = FALSE ORDER BY published_at ASC`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// LatestPublishedAt is the sync watermark source: the newest remote
// publish time we have stored for this platform and owner.
func (r *commentRepository) LatestPublishedAt(ctx context.Context, platform string, connectionUserID int64) (*time.Time, error) {
	query := `
		SELECT MAX(c.published_at)
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		WHERE c.platform = $1 AND p.user_id = $2
	`

	var latest sql.NullTime
	err := r.db.QueryRowContext(ctx, query, platform, connectionUserID).Scan(&latest)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *commentRepository) SetResolved(ctx context.Context, id int64, resolved bool) error {
	query := `UPDATE comments SET is_resolved = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, resolved, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *commentRepository) SetHidden(ctx context.Context, id int64, hidden bool) error {
	query := `UPDATE comments SET is_hidden = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, hidden, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *commentRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM comments WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
