package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/publora/publora/internal/models"
)

type CommentAuthorRepository interface {
	// Upsert creates or refreshes the author by its
	// (platform, external_id) natural key and returns the local id.
	Upsert(ctx context.Context, author *models.CommentAuthor) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.CommentAuthor, error)
}

type commentAuthorRepository struct {
	db *sql.DB
}

func NewCommentAuthorRepository(db *sql.DB) CommentAuthorRepository {
	return &commentAuthorRepository{db: db}
}

func (r *commentAuthorRepository) Upsert(ctx context.Context, author *models.CommentAuthor) (int64, error) {
	query := `
		INSERT INTO comment_authors (platform, external_id, name, avatar_url, profile_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (platform, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			profile_url = EXCLUDED.profile_url,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, author.Platform, author.ExternalID,
		author.Name, author.AvatarURL, author.ProfileURL).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *commentAuthorRepository) GetByID(ctx context.Context, id int64) (*models.CommentAuthor, error) {
	query := `SELECT id, platform, external_id, name, avatar_url, profile_url, created_at, updated_at FROM comment_authors WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var author models.CommentAuthor
	err := row.Scan(&author.ID, &author.Platform, &author.ExternalID, &author.Name,
		&author.AvatarURL, &author.ProfileURL, &author.CreatedAt, &author.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &author, nil
}
