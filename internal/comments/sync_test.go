package comments

import (
	"context"
	"testing"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/pkg/utils"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func encryptedToken(t *testing.T, token string) string {
	t.Helper()
	enc, err := utils.Encrypt([]byte(token), testKey)
	if err != nil {
		t.Fatalf("encrypting token: %v", err)
	}
	return enc
}

type fakeConnectionRepo struct {
	repository.ConnectionRepository
	conn *models.PlatformConnection
}

func (f *fakeConnectionRepo) GetByID(ctx context.Context, id int64) (*models.PlatformConnection, error) {
	if f.conn != nil && f.conn.ID == id {
		return f.conn, nil
	}
	return nil, nil
}

type fakeJobRepo struct {
	repository.PublishJobRepository
	byVideoID map[string]*models.PublishJob
}

func (f *fakeJobRepo) GetByPlatformVideoID(ctx context.Context, platform, videoID string) (*models.PublishJob, error) {
	return f.byVideoID[videoID], nil
}

type fakeCommentRepo struct {
	repository.CommentRepository
	latest   *time.Time
	byExtID  map[string]*models.Comment
	upserted []*models.Comment
	nextID   int64
}

func (f *fakeCommentRepo) LatestPublishedAt(ctx context.Context, platform string, userID int64) (*time.Time, error) {
	return f.latest, nil
}

func (f *fakeCommentRepo) GetByExternalID(ctx context.Context, platform, externalID string) (*models.Comment, error) {
	return f.byExtID[externalID], nil
}

func (f *fakeCommentRepo) Upsert(ctx context.Context, comment *models.Comment) (int64, error) {
	f.nextID++
	comment.ID = f.nextID
	if f.byExtID == nil {
		f.byExtID = make(map[string]*models.Comment)
	}
	f.byExtID[comment.ExternalID] = comment
	f.upserted = append(f.upserted, comment)
	return comment.ID, nil
}

type fakeAuthorRepo struct {
	repository.CommentAuthorRepository
	upserted []*models.CommentAuthor
}

func (f *fakeAuthorRepo) Upsert(ctx context.Context, author *models.CommentAuthor) (int64, error) {
	f.upserted = append(f.upserted, author)
	return int64(len(f.upserted)), nil
}

// fakeCommentAdapter implements Adapter plus CommentSource so the
// registry exposes it for sync.
type fakeCommentAdapter struct {
	platforms.Adapter
	name      string
	comments  []platforms.CommentData
	gotOwner  string
	gotSince  time.Time
	fetchedAt int
}

func (f *fakeCommentAdapter) Name() string { return f.name }

func (f *fakeCommentAdapter) FetchComments(ctx context.Context, creds platforms.Credentials, ownerID string, since time.Time) ([]platforms.CommentData, error) {
	f.fetchedAt++
	f.gotOwner = ownerID
	f.gotSince = since
	return f.comments, nil
}

func (f *fakeCommentAdapter) Reply(ctx context.Context, creds platforms.Credentials, parentExternalID, text string) (string, error) {
	return "", nil
}

func (f *fakeCommentAdapter) DeleteComment(ctx context.Context, creds platforms.Credentials, externalID string) error {
	return nil
}

func newTestSyncer(conn *models.PlatformConnection, adapter platforms.Adapter, jobs *fakeJobRepo, comments *fakeCommentRepo, authors *fakeAuthorRepo) *Syncer {
	registry := platforms.NewRegistry()
	if adapter != nil {
		registry.Register(conn.Platform, adapter)
	}
	return NewSyncer(&fakeConnectionRepo{conn: conn}, jobs, comments, authors, registry, testKey)
}

func activeConnection(t *testing.T) *models.PlatformConnection {
	return &models.PlatformConnection{
		ID:          7,
		UserID:      3,
		Platform:    models.PlatformYoutube,
		AccountID:   "channel-1",
		AccessToken: encryptedToken(t, "token"),
		IsActive:    true,
	}
}

func TestSyncConnectionLinksParentAndPost(t *testing.T) {
	conn := activeConnection(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Reply listed before its parent; sync must still link it.
	adapter := &fakeCommentAdapter{
		name: models.PlatformYoutube,
		comments: []platforms.CommentData{
			{
				ExternalID:       "c2",
				ExternalParentID: "c1",
				ExternalPostID:   "vid-1",
				AuthorExternalID: "u2",
				Content:          "reply",
				PublishedAt:      base.Add(time.Hour),
			},
			{
				ExternalID:       "c1",
				ExternalPostID:   "vid-1",
				AuthorExternalID: "u1",
				Content:          "top level",
				PublishedAt:      base,
			},
		},
	}

	jobs := &fakeJobRepo{byVideoID: map[string]*models.PublishJob{
		"vid-1": {ID: 1, PostID: 42},
	}}
	commentRepo := &fakeCommentRepo{}
	authorRepo := &fakeAuthorRepo{}

	s := newTestSyncer(conn, adapter, jobs, commentRepo, authorRepo)
	if err := s.SyncConnection(context.Background(), conn.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(commentRepo.upserted) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(commentRepo.upserted))
	}
	if commentRepo.upserted[0].ExternalID != "c1" {
		t.Fatalf("expected oldest comment first, got %s", commentRepo.upserted[0].ExternalID)
	}

	reply := commentRepo.upserted[1]
	if !reply.ParentID.Valid || reply.ParentID.Int64 != commentRepo.upserted[0].ID {
		t.Fatalf("reply not linked to parent: %+v", reply.ParentID)
	}
	if !reply.PostID.Valid || reply.PostID.Int64 != 42 {
		t.Fatalf("reply not linked to post: %+v", reply.PostID)
	}
	if len(authorRepo.upserted) != 2 {
		t.Fatalf("expected 2 author upserts, got %d", len(authorRepo.upserted))
	}
}

func TestSyncConnectionUnseenParentStaysNull(t *testing.T) {
	conn := activeConnection(t)
	adapter := &fakeCommentAdapter{
		name: models.PlatformYoutube,
		comments: []platforms.CommentData{
			{
				ExternalID:       "c9",
				ExternalParentID: "never-fetched",
				ExternalPostID:   "vid-1",
				Content:          "orphan reply",
				PublishedAt:      time.Now(),
			},
		},
	}

	commentRepo := &fakeCommentRepo{}
	s := newTestSyncer(conn, adapter, &fakeJobRepo{}, commentRepo, &fakeAuthorRepo{})
	if err := s.SyncConnection(context.Background(), conn.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := commentRepo.upserted[0]
	if got.ParentID.Valid {
		t.Fatalf("expected null parent_id for unseen parent, got %d", got.ParentID.Int64)
	}
	if got.ExternalParentID.String != "never-fetched" {
		t.Fatalf("external parent id not preserved: %+v", got.ExternalParentID)
	}
}

func TestSyncConnectionWatermark(t *testing.T) {
	conn := activeConnection(t)
	adapter := &fakeCommentAdapter{name: models.PlatformYoutube}

	latest := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	commentRepo := &fakeCommentRepo{latest: &latest}

	s := newTestSyncer(conn, adapter, &fakeJobRepo{}, commentRepo, &fakeAuthorRepo{})
	if err := s.SyncConnection(context.Background(), conn.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := latest.Add(-24 * time.Hour)
	if !adapter.gotSince.Equal(want) {
		t.Fatalf("got watermark %v, want %v", adapter.gotSince, want)
	}
	if adapter.gotOwner != "channel-1" {
		t.Fatalf("got owner %q", adapter.gotOwner)
	}
}

func TestSyncConnectionFirstRunLookback(t *testing.T) {
	conn := activeConnection(t)
	adapter := &fakeCommentAdapter{name: models.PlatformYoutube}

	s := newTestSyncer(conn, adapter, &fakeJobRepo{}, &fakeCommentRepo{}, &fakeAuthorRepo{})
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.SyncConnection(context.Background(), conn.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := now.Add(-30 * 24 * time.Hour)
	if !adapter.gotSince.Equal(want) {
		t.Fatalf("got lookback %v, want %v", adapter.gotSince, want)
	}
}

func TestSyncConnectionSkipsInactive(t *testing.T) {
	conn := activeConnection(t)
	conn.IsActive = false
	adapter := &fakeCommentAdapter{name: models.PlatformYoutube}

	s := newTestSyncer(conn, adapter, &fakeJobRepo{}, &fakeCommentRepo{}, &fakeAuthorRepo{})
	if err := s.SyncConnection(context.Background(), conn.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.fetchedAt != 0 {
		t.Fatal("expected no fetch for inactive connection")
	}
}

func TestSyncConnectionNoCommentSource(t *testing.T) {
	conn := activeConnection(t)
	conn.Platform = models.PlatformTiktok

	registry := platforms.NewRegistry()
	registry.Register(models.PlatformTiktok, platforms.NewTiktokAdapter())

	s := NewSyncer(&fakeConnectionRepo{conn: conn}, &fakeJobRepo{}, &fakeCommentRepo{}, &fakeAuthorRepo{}, registry, testKey)
	if err := s.SyncConnection(context.Background(), conn.ID); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
