package queue

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/platforms"
	"github.com/publora/publora/internal/repository"
	"github.com/publora/publora/pkg/utils"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type fakeJobStore struct {
	repository.PublishJobRepository
	job       *models.PublishJob
	claims    int
	failedMsg string
	handle    string
}

func (f *fakeJobStore) GetByID(ctx context.Context, id int64) (*models.PublishJob, error) {
	if f.job != nil && f.job.ID == id {
		return f.job, nil
	}
	return nil, nil
}

func (f *fakeJobStore) ClaimProcessing(ctx context.Context, id int64, now time.Time) (bool, error) {
	switch f.job.Status {
	case models.JobStatusPending, models.JobStatusScheduled, models.JobStatusFailed:
		f.job.Status = models.JobStatusProcessing
		f.job.RetryCount++
		f.claims++
		return true, nil
	}
	return false, nil
}

func (f *fakeJobStore) MarkCompleted(ctx context.Context, id int64, status, videoID, videoURL string, now time.Time) error {
	if f.job.Status != models.JobStatusProcessing {
		return nil
	}
	f.job.Status = status
	f.job.PlatformVideoID = sql.NullString{String: videoID, Valid: videoID != ""}
	f.job.PlatformVideoURL = sql.NullString{String: videoURL, Valid: videoURL != ""}
	f.job.CompletedAt = sql.NullTime{Time: now, Valid: true}
	return nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, id int64, errorMessage string, now time.Time) error {
	switch f.job.Status {
	case models.JobStatusPending, models.JobStatusScheduled, models.JobStatusProcessing:
		f.job.Status = models.JobStatusFailed
		f.failedMsg = errorMessage
	}
	return nil
}

func (f *fakeJobStore) SetPublishHandle(ctx context.Context, id int64, handle string) error {
	f.handle = handle
	f.job.PublishHandle = sql.NullString{String: handle, Valid: true}
	return nil
}

type fakeConnStore struct {
	repository.ConnectionRepository
	conn *models.PlatformConnection
}

func (f *fakeConnStore) GetByID(ctx context.Context, id int64) (*models.PlatformConnection, error) {
	if f.conn != nil && f.conn.ID == id {
		return f.conn, nil
	}
	return nil, nil
}

type fakePostStore struct {
	repository.PostRepository
	post *models.Post
}

func (f *fakePostStore) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	if f.post != nil && f.post.ID == id {
		return f.post, nil
	}
	return nil, nil
}

type fakeStorage struct{}

func (fakeStorage) PresignDownload(ctx context.Context, key string) (string, error) {
	return "https://storage.test/" + key, nil
}

type fakePlatform struct {
	name         string
	native       bool
	uploadResult *platforms.UploadResult
	uploadErr    error
	onUpload     func()
	updateResult *platforms.UploadResult

	uploads     int
	updates     int
	gotMeta     platforms.Metadata
	gotAsset    platforms.Asset
	gotUpdateID string

	status    *platforms.PublishStatus
	statusErr error
	polls     int
}

func (f *fakePlatform) Name() string           { return f.name }
func (f *fakePlatform) NativeScheduling() bool { return f.native }

func (f *fakePlatform) Upload(ctx context.Context, creds platforms.Credentials, asset platforms.Asset, meta platforms.Metadata) (*platforms.UploadResult, error) {
	f.uploads++
	f.gotAsset = asset
	f.gotMeta = meta
	if f.onUpload != nil {
		f.onUpload()
	}
	return f.uploadResult, f.uploadErr
}

func (f *fakePlatform) Update(ctx context.Context, creds platforms.Credentials, remoteID string, meta platforms.Metadata) (*platforms.UploadResult, error) {
	f.updates++
	f.gotUpdateID = remoteID
	f.gotMeta = meta
	return f.updateResult, nil
}

func (f *fakePlatform) FetchStats(ctx context.Context, creds platforms.Credentials, remoteIDs []string) ([]platforms.VideoStats, error) {
	return nil, nil
}

func (f *fakePlatform) Delete(ctx context.Context, creds platforms.Credentials, remoteID string) error {
	return nil
}

func (f *fakePlatform) CheckUploadStatus(ctx context.Context, creds platforms.Credentials, handle string) (*platforms.PublishStatus, error) {
	f.polls++
	return f.status, f.statusErr
}

type capturedPoll struct {
	payload StatusPollPayload
	delay   time.Duration
}

type testQueue struct {
	*Queue
	jobStore  *fakeJobStore
	adapter   *fakePlatform
	reEnqueue []int64
	polls     []capturedPoll
}

func newTestQueue(t *testing.T, job *models.PublishJob, adapter *fakePlatform) *testQueue {
	t.Helper()

	enc, err := utils.Encrypt([]byte("access-token"), testKey)
	if err != nil {
		t.Fatalf("encrypting token: %v", err)
	}

	registry := platforms.NewRegistry()
	registry.Register(adapter.name, adapter)

	jobStore := &fakeJobStore{job: job}
	tq := &testQueue{jobStore: jobStore, adapter: adapter}

	q := &Queue{
		jobs: jobStore,
		posts: &fakePostStore{post: &models.Post{
			ID:          job.PostID,
			Title:       "post title",
			Description: "post description",
			Tags:        []string{"one"},
			Privacy:     models.PrivacyPublic,
			StorageKey:  "videos/1.mp4",
			ContentType: "video/mp4",
			FileSize:    1024,
		}},
		connections: &fakeConnStore{conn: &models.PlatformConnection{
			ID:          job.ConnectionID,
			UserID:      job.UserID,
			Platform:    adapter.name,
			AccountID:   "acct-1",
			AccessToken: enc,
			IsActive:    true,
		}},
		registry:  registry,
		storage:   fakeStorage{},
		secretKey: testKey,
		now:       time.Now,
		enqueueJob: func(j *models.PublishJob) error {
			tq.reEnqueue = append(tq.reEnqueue, j.ID)
			return nil
		},
		enqueueStatusPoll: func(payload StatusPollPayload, delay time.Duration) error {
			tq.polls = append(tq.polls, capturedPoll{payload: payload, delay: delay})
			return nil
		},
	}
	tq.Queue = q
	return tq
}

func pendingJob(platform string) *models.PublishJob {
	return &models.PublishJob{
		ID:           1,
		UserID:       3,
		PostID:       10,
		ConnectionID: 7,
		Platform:     platform,
		Status:       models.JobStatusPending,
	}
}

func TestRunPublishJobCompletes(t *testing.T) {
	adapter := &fakePlatform{
		name:         models.PlatformYoutube,
		uploadResult: &platforms.UploadResult{RemoteID: "vid-1", RemoteURL: "https://yt/vid-1"},
	}
	tq := newTestQueue(t, pendingJob(models.PlatformYoutube), adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tq.jobStore.job.Status != models.JobStatusCompleted {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if tq.jobStore.job.PlatformVideoID.String != "vid-1" {
		t.Fatalf("video id not persisted: %+v", tq.jobStore.job.PlatformVideoID)
	}
	if tq.jobStore.job.RetryCount != 1 {
		t.Fatalf("first attempt should count, got %d", tq.jobStore.job.RetryCount)
	}
	if adapter.gotAsset.URL == "" || adapter.gotMeta.Title != "post title" {
		t.Fatalf("adapter called without asset/metadata: %+v %+v", adapter.gotAsset, adapter.gotMeta)
	}
}

func TestRunPublishJobSkipsUnclaimable(t *testing.T) {
	job := pendingJob(models.PlatformYoutube)
	job.Status = models.JobStatusProcessing

	adapter := &fakePlatform{name: models.PlatformYoutube}
	tq := newTestQueue(t, job, adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.uploads != 0 {
		t.Fatal("upload must not run when another worker owns the job")
	}
}

func TestRunPublishJobSkipsTerminal(t *testing.T) {
	job := pendingJob(models.PlatformYoutube)
	job.Status = models.JobStatusCancelled

	adapter := &fakePlatform{name: models.PlatformYoutube}
	tq := newTestQueue(t, job, adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tq.jobStore.claims != 0 || adapter.uploads != 0 {
		t.Fatal("cancelled job must be untouched")
	}
}

func TestRunPublishJobCancelledMidUploadStaysCancelled(t *testing.T) {
	adapter := &fakePlatform{
		name:         models.PlatformYoutube,
		uploadResult: &platforms.UploadResult{RemoteID: "vid-1", RemoteURL: "https://yt/vid-1"},
	}
	tq := newTestQueue(t, pendingJob(models.PlatformYoutube), adapter)
	adapter.onUpload = func() {
		tq.jobStore.job.Status = models.JobStatusCancelled
	}

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tq.jobStore.job.Status != models.JobStatusCancelled {
		t.Fatalf("cancel during upload must win, got status %s", tq.jobStore.job.Status)
	}
	if tq.jobStore.job.PlatformVideoID.Valid {
		t.Fatalf("cancelled job must not record a remote id: %+v", tq.jobStore.job.PlatformVideoID)
	}
}

func TestRunPublishJobTextPostSkipsStorage(t *testing.T) {
	adapter := &fakePlatform{
		name:         models.PlatformLinkedin,
		uploadResult: &platforms.UploadResult{RemoteID: "urn:li:share:1"},
	}
	tq := newTestQueue(t, pendingJob(models.PlatformLinkedin), adapter)
	tq.Queue.posts = &fakePostStore{post: &models.Post{
		ID:       10,
		PostType: models.PostTypeText,
		Title:    "words only",
		Privacy:  models.PrivacyPublic,
	}}

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tq.jobStore.job.Status != models.JobStatusCompleted {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if adapter.gotAsset.URL != "" {
		t.Fatalf("text post must carry no asset url: %q", adapter.gotAsset.URL)
	}
}

func TestRunPublishJobDefersFutureNonNative(t *testing.T) {
	job := pendingJob(models.PlatformTiktok)
	job.ScheduledFor = sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}

	adapter := &fakePlatform{name: models.PlatformTiktok, native: false}
	tq := newTestQueue(t, job, adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tq.reEnqueue) != 1 || tq.reEnqueue[0] != 1 {
		t.Fatalf("expected a durable re-enqueue, got %v", tq.reEnqueue)
	}
	if tq.jobStore.claims != 0 || adapter.uploads != 0 {
		t.Fatal("future job must not publish early")
	}
}

func TestRunPublishJobNativeScheduling(t *testing.T) {
	job := pendingJob(models.PlatformYoutube)
	scheduledFor := time.Now().Add(2 * time.Hour)
	job.ScheduledFor = sql.NullTime{Time: scheduledFor, Valid: true}

	adapter := &fakePlatform{
		name:         models.PlatformYoutube,
		native:       true,
		uploadResult: &platforms.UploadResult{RemoteID: "vid-2"},
	}
	tq := newTestQueue(t, job, adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tq.jobStore.job.Status != models.JobStatusPlatformScheduled {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if adapter.gotMeta.PublishAt == nil || !adapter.gotMeta.PublishAt.Equal(scheduledFor) {
		t.Fatalf("native publish time not passed through: %v", adapter.gotMeta.PublishAt)
	}
	if len(tq.reEnqueue) != 0 {
		t.Fatal("native platforms upload immediately, no re-enqueue")
	}
}

func TestRunPublishJobFailurePersistsAndReturnsError(t *testing.T) {
	adapter := &fakePlatform{
		name:      models.PlatformYoutube,
		uploadErr: errors.New("quota exceeded"),
	}
	tq := newTestQueue(t, pendingJob(models.PlatformYoutube), adapter)

	err := tq.RunPublishJob(context.Background(), 1)
	if err == nil {
		t.Fatal("expected the upload error back for the broker retry")
	}
	if tq.jobStore.job.Status != models.JobStatusFailed {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if tq.jobStore.failedMsg != "quota exceeded" {
		t.Fatalf("error message not persisted: %q", tq.jobStore.failedMsg)
	}
}

func TestRunPublishJobRetryReclaimsFromFailed(t *testing.T) {
	job := pendingJob(models.PlatformYoutube)
	job.Status = models.JobStatusFailed
	job.RetryCount = 1

	adapter := &fakePlatform{
		name:         models.PlatformYoutube,
		uploadResult: &platforms.UploadResult{RemoteID: "vid-3"},
	}
	tq := newTestQueue(t, job, adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tq.jobStore.job.Status != models.JobStatusCompleted {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if tq.jobStore.job.RetryCount != 2 {
		t.Fatalf("retry must increment the attempt count, got %d", tq.jobStore.job.RetryCount)
	}
}

func TestRunPublishJobDeferredUpload(t *testing.T) {
	adapter := &fakePlatform{
		name:         models.PlatformTiktok,
		uploadResult: &platforms.UploadResult{RemoteID: "publish-handle-1", Deferred: true},
	}
	tq := newTestQueue(t, pendingJob(models.PlatformTiktok), adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tq.jobStore.job.Status != models.JobStatusProcessing {
		t.Fatalf("deferred upload must stay processing, got %s", tq.jobStore.job.Status)
	}
	if tq.jobStore.handle != "publish-handle-1" {
		t.Fatalf("publish handle not persisted: %q", tq.jobStore.handle)
	}
	if len(tq.polls) != 1 || tq.polls[0].payload.Attempt != 1 {
		t.Fatalf("expected first status poll, got %v", tq.polls)
	}
}

func TestRunPublishJobUpdateUsesTargetVideo(t *testing.T) {
	job := pendingJob(models.PlatformYoutube)
	job.IsUpdate = true
	job.UpdateTargetVideoID = sql.NullString{String: "vid-9", Valid: true}
	job.Title = sql.NullString{String: "override", Valid: true}

	adapter := &fakePlatform{
		name:         models.PlatformYoutube,
		updateResult: &platforms.UploadResult{RemoteID: "vid-9"},
	}
	tq := newTestQueue(t, job, adapter)

	if err := tq.RunPublishJob(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if adapter.updates != 1 || adapter.uploads != 0 {
		t.Fatalf("expected metadata update, got uploads=%d updates=%d", adapter.uploads, adapter.updates)
	}
	if adapter.gotUpdateID != "vid-9" {
		t.Fatalf("wrong update target: %q", adapter.gotUpdateID)
	}
	if adapter.gotMeta.Title != "override" {
		t.Fatalf("job override not applied: %q", adapter.gotMeta.Title)
	}
}

func processingTiktokJob() *models.PublishJob {
	job := pendingJob(models.PlatformTiktok)
	job.Status = models.JobStatusProcessing
	job.PublishHandle = sql.NullString{String: "handle-1", Valid: true}
	return job
}

func TestPollUploadStatusCompletes(t *testing.T) {
	adapter := &fakePlatform{
		name:   models.PlatformTiktok,
		status: &platforms.PublishStatus{Done: true, RemoteID: "vid-1", RemoteURL: "https://tt/vid-1"},
	}
	tq := newTestQueue(t, processingTiktokJob(), adapter)

	if err := tq.PollUploadStatus(context.Background(), StatusPollPayload{JobID: 1, Attempt: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tq.jobStore.job.Status != models.JobStatusCompleted {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if tq.jobStore.job.PlatformVideoURL.String != "https://tt/vid-1" {
		t.Fatalf("video url not persisted: %+v", tq.jobStore.job.PlatformVideoURL)
	}
}

func TestPollUploadStatusFailure(t *testing.T) {
	adapter := &fakePlatform{
		name:   models.PlatformTiktok,
		status: &platforms.PublishStatus{Failed: true, FailReason: "video_too_long"},
	}
	tq := newTestQueue(t, processingTiktokJob(), adapter)

	if err := tq.PollUploadStatus(context.Background(), StatusPollPayload{JobID: 1, Attempt: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tq.jobStore.job.Status != models.JobStatusFailed {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if tq.jobStore.failedMsg != "video_too_long" {
		t.Fatalf("fail reason not persisted: %q", tq.jobStore.failedMsg)
	}
}

func TestPollUploadStatusReEnqueuesWithBackoff(t *testing.T) {
	adapter := &fakePlatform{
		name:   models.PlatformTiktok,
		status: &platforms.PublishStatus{},
	}
	tq := newTestQueue(t, processingTiktokJob(), adapter)

	if err := tq.PollUploadStatus(context.Background(), StatusPollPayload{JobID: 1, Attempt: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tq.polls) != 1 {
		t.Fatalf("expected one re-poll, got %v", tq.polls)
	}
	if tq.polls[0].payload.Attempt != 3 {
		t.Fatalf("attempt must increment, got %d", tq.polls[0].payload.Attempt)
	}
	if tq.polls[0].delay != 3*statusPollInterval {
		t.Fatalf("expected linear backoff, got %v", tq.polls[0].delay)
	}
}

func TestPollUploadStatusTimesOut(t *testing.T) {
	adapter := &fakePlatform{
		name:   models.PlatformTiktok,
		status: &platforms.PublishStatus{},
	}
	tq := newTestQueue(t, processingTiktokJob(), adapter)

	if err := tq.PollUploadStatus(context.Background(), StatusPollPayload{JobID: 1, Attempt: maxStatusPolls}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tq.jobStore.job.Status != models.JobStatusFailed {
		t.Fatalf("got status %s", tq.jobStore.job.Status)
	}
	if len(tq.polls) != 0 {
		t.Fatal("no further polls after the cap")
	}
}

func TestPollUploadStatusIgnoresResolvedJob(t *testing.T) {
	job := processingTiktokJob()
	job.Status = models.JobStatusCompleted

	adapter := &fakePlatform{name: models.PlatformTiktok}
	tq := newTestQueue(t, job, adapter)

	if err := tq.PollUploadStatus(context.Background(), StatusPollPayload{JobID: 1, Attempt: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.polls != 0 {
		t.Fatal("resolved job must not be polled")
	}
}
