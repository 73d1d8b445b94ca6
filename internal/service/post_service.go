package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/internal/transfer"
	"github.com/publora/publora/pkg/utils"
)

const maxFileSize = 512 << 20 // 512MB

var allowedTypes = map[string]string{
	"mp4":  models.PostTypeVideo,
	"mov":  models.PostTypeVideo,
	"webm": models.PostTypeVideo,
	"jpg":  models.PostTypeImage,
	"png":  models.PostTypeImage,
	"webp": models.PostTypeImage,
}

type PostService interface {
	RequestUpload(ctx context.Context, userID int64, req *transfer.RequestUploadRequest) (*transfer.RequestUploadResponse, error)
	ConfirmUpload(ctx context.Context, userID int64, req *transfer.ConfirmUploadRequest) (*models.Post, error)
	CreateText(ctx context.Context, userID int64, req *transfer.CreateTextPostRequest) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Get(ctx context.Context, userID, postID int64) (*models.Post, error)
	UpdateMetadata(ctx context.Context, userID, postID int64, req *transfer.UpdatePostRequest) error
	Delete(ctx context.Context, userID, postID int64) error
}

type postService struct {
	posts       repository.PostRepository
	jobs        repository.PublishJobRepository
	connections repository.ConnectionRepository
	storage     StorageService
	registry    *platforms.Registry
	secretKey   []byte
}

func NewPostService(
	posts repository.PostRepository,
	jobs repository.PublishJobRepository,
	connections repository.ConnectionRepository,
	storage StorageService,
	registry *platforms.Registry,
	secretKey []byte) PostService {
	return &postService{
		posts:       posts,
		jobs:        jobs,
		connections: connections,
		storage:     storage,
		registry:    registry,
		secretKey:   secretKey,
	}
}

// RequestUpload validates size up front and hands back a presigned PUT
// URL; the bytes never pass through the API.
func (s *postService) RequestUpload(ctx context.Context, userID int64, req *transfer.RequestUploadRequest) (*transfer.RequestUploadResponse, error) {
	if req.FileSize <= 0 {
		return nil, errors.New("file size is required")
	}
	if req.FileSize > maxFileSize {
		return nil, errors.New("file exceeds the 512MB limit")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("uploads/%d/%s%s", userID, id, path.Ext(req.FileName))

	uploadURL, err := s.storage.PresignUpload(ctx, key, req.ContentType, req.FileSize)
	if err != nil {
		return nil, err
	}

	return &transfer.RequestUploadResponse{UploadURL: uploadURL, StorageKey: key}, nil
}

// ConfirmUpload sniffs the stored object's real type before creating
// the post; declared content types are never trusted.
func (s *postService) ConfirmUpload(ctx context.Context, userID int64, req *transfer.ConfirmUploadRequest) (*models.Post, error) {
	if req.StorageKey == "" {
		return nil, errors.New("storage key is required")
	}
	if req.FileSize > maxFileSize {
		return nil, errors.New("file exceeds the 512MB limit")
	}

	head, err := s.readHead(ctx, req.StorageKey)
	if err != nil {
		return nil, err
	}

	fileType, err := filetype.Match(head)
	if err != nil || fileType == types.Unknown {
		return nil, fmt.Errorf("unsupported file type")
	}
	postType, ok := allowedTypes[fileType.Extension]
	if !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	if !models.ValidPrivacy(privacy) {
		return nil, fmt.Errorf("unknown privacy value %q", privacy)
	}

	post := &models.Post{
		UserID:      userID,
		PostType:    postType,
		StorageKey:  req.StorageKey,
		Bucket:      s.storage.Bucket(),
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Privacy:     privacy,
		FileSize:    req.FileSize,
		ContentType: fileType.MIME.Value,
	}

	id, err := s.posts.Create(ctx, nil, post)
	if err != nil {
		return nil, err
	}
	post.ID = id

	return post, nil
}

// CreateText makes a post with no storage object behind it; only
// platforms with a text surface (LinkedIn) can publish it.
func (s *postService) CreateText(ctx context.Context, userID int64, req *transfer.CreateTextPostRequest) (*models.Post, error) {
	if req.Title == "" && req.Description == "" {
		return nil, errors.New("text post needs a title or description")
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	if !models.ValidPrivacy(privacy) {
		return nil, fmt.Errorf("unknown privacy value %q", privacy)
	}

	post := &models.Post{
		UserID:      userID,
		PostType:    models.PostTypeText,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Privacy:     privacy,
	}

	id, err := s.posts.Create(ctx, nil, post)
	if err != nil {
		return nil, err
	}
	post.ID = id
	return post, nil
}

// readHead fetches the sniffing window from object storage.
func (s *postService) readHead(ctx context.Context, key string) ([]byte, error) {
	downloadURL, err := s.storage.PresignDownload(ctx, key)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Range", "bytes=0-261")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reading uploaded object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("uploaded object is missing (status %d)", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 262))
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.posts.GetByUserID(ctx, userID)
}

func (s *postService) Get(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, errors.New("post doesn't exist")
	}
	return post, nil
}

func (s *postService) UpdateMetadata(ctx context.Context, userID, postID int64, req *transfer.UpdatePostRequest) error {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return err
	}

	if req.Title != "" {
		post.Title = req.Title
	}
	if req.Description != "" {
		post.Description = req.Description
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}
	if req.Privacy != "" {
		if !models.ValidPrivacy(req.Privacy) {
			return fmt.Errorf("unknown privacy value %q", req.Privacy)
		}
		post.Privacy = req.Privacy
	}

	return s.posts.UpdateMetadata(ctx, post)
}

// Delete tears a post down across storage, platforms, and the
// database. Remote steps are independent and best-effort: a failed
// storage or platform delete is logged and the local delete still
// completes.
func (s *postService) Delete(ctx context.Context, userID, postID int64) error {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.StorageKey != "" {
		if err := s.storage.Delete(ctx, post.StorageKey); err != nil {
			slog.Info(err.Error())
		}
	}

	published, err := s.jobs.ListByPostID(ctx, postID)
	if err != nil {
		slog.Info(err.Error())
	}
	for _, job := range published {
		if !job.PlatformVideoID.Valid {
			continue
		}
		if err := s.deleteRemote(ctx, job); err != nil {
			slog.Info(err.Error())
		}
	}

	return s.posts.Remove(ctx, postID)
}

func (s *postService) deleteRemote(ctx context.Context, job *models.PublishJob) error {
	adapter := s.registry.Adapter(job.Platform)
	if adapter == nil {
		return nil
	}

	conn, err := s.connections.GetByID(ctx, job.ConnectionID)
	if err != nil {
		return err
	}
	if conn == nil || !conn.IsActive {
		return nil
	}

	accessToken, err := utils.Decrypt(conn.AccessToken, s.secretKey)
	if err != nil {
		return err
	}

	creds := platforms.Credentials{AccessToken: accessToken, AccountID: conn.AccountID}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return adapter.Delete(ctx, creds, job.PlatformVideoID.String)
}
