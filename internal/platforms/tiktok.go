package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/transfer"
)

const tiktokAPIBase = "https://open.tiktokapis.com/v2"

// TikTok publish status values.
const (
	TiktokStatusComplete = "PUBLISH_COMPLETE"
	TiktokStatusFailed   = "FAILED"
)

type tiktokAdapter struct {
	client *http.Client
}

func NewTiktokAdapter() Adapter {
	return &tiktokAdapter{client: &http.Client{Timeout: 5 * time.Minute}}
}

func (a *tiktokAdapter) Name() string { return models.PlatformTiktok }

// TikTok publishes immediately; scheduling stays on our side.
func (a *tiktokAdapter) NativeScheduling() bool { return false }

// mapTiktokPrivacy centralizes the privacy vocabulary. TikTok has no
// unlisted concept; unlisted and private both map to SELF_ONLY.
func mapTiktokPrivacy(privacy string) string {
	switch privacy {
	case models.PrivacyPublic:
		return "PUBLIC_TO_EVERYONE"
	case models.PrivacyMutual:
		return "MUTUAL_FOLLOW_FRIENDS"
	default:
		// Anything unrecognized stays creator-only rather than public.
		return "SELF_ONLY"
	}
}

// Upload downloads the full object into memory, initializes a
// FILE_UPLOAD publish, PUTs the bytes as a single chunk and returns a
// deferred result carrying the publish_id to poll.
func (a *tiktokAdapter) Upload(ctx context.Context, creds Credentials, asset Asset, meta Metadata) (*UploadResult, error) {
	data, err := fetchAsset(ctx, asset)
	if err != nil {
		return nil, err
	}

	initReq := transfer.TiktokUploadInitRequest{
		PostInfo: transfer.TiktokPostInfo{
			Title:                 meta.Title,
			PrivacyLevel:          mapTiktokPrivacy(meta.Privacy),
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokSourceInfo{
			Source:          "FILE_UPLOAD",
			VideoSize:       int64(len(data)),
			ChunkSize:       int64(len(data)),
			TotalChunkCount: 1,
		},
	}

	var initResp transfer.TiktokUploadInitResponse
	if err := a.postJSON(ctx, creds, tiktokAPIBase+"/post/publish/video/init/", initReq, &initResp); err != nil {
		return nil, err
	}
	if initResp.Data.PublishID == "" || initResp.Data.UploadURL == "" {
		return nil, fmt.Errorf("tiktok upload init rejected: %s", initResp.Error.Message)
	}

	if err := a.putChunk(ctx, initResp.Data.UploadURL, data, asset.ContentType); err != nil {
		return nil, err
	}

	return &UploadResult{RemoteID: initResp.Data.PublishID, Deferred: true}, nil
}

func (a *tiktokAdapter) putChunk(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "video/mp4"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", len(data)-1, len(data)))
	req.ContentLength = int64(len(data))

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok chunk upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("tiktok chunk upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// CheckUploadStatus polls a deferred publish.
func (a *tiktokAdapter) CheckUploadStatus(ctx context.Context, creds Credentials, handle string) (*PublishStatus, error) {
	var statusResp transfer.TiktokStatusResponse
	payload := transfer.TiktokStatusRequest{PublishID: handle}
	if err := a.postJSON(ctx, creds, tiktokAPIBase+"/post/publish/status/fetch/", payload, &statusResp); err != nil {
		return nil, err
	}

	status := &PublishStatus{RemoteID: handle}
	switch statusResp.Data.Status {
	case TiktokStatusComplete:
		status.Done = true
		if len(statusResp.Data.PubliclyAvailablePostID) > 0 {
			videoID := strconv.FormatInt(statusResp.Data.PubliclyAvailablePostID[0], 10)
			status.RemoteID = videoID
			status.RemoteURL = "https://www.tiktok.com/@" + creds.AccountID + "/video/" + videoID
		}
	case TiktokStatusFailed:
		status.Failed = true
		status.FailReason = statusResp.Data.FailReason
	}
	return status, nil
}

// Update is not offered by TikTok's content API; published videos can
// only be edited in the app.
func (a *tiktokAdapter) Update(ctx context.Context, creds Credentials, remoteID string, meta Metadata) (*UploadResult, error) {
	return nil, fmt.Errorf("tiktok metadata update: %w", ErrNotSupported)
}

func (a *tiktokAdapter) FetchStats(ctx context.Context, creds Credentials, remoteIDs []string) ([]VideoStats, error) {
	var stats []VideoStats
	for _, chunk := range chunkIDs(remoteIDs, 20) {
		payload := transfer.TiktokVideoQueryRequest{
			Filters: transfer.TiktokVideoQueryFilters{VideoIDs: chunk},
		}
		var queryResp transfer.TiktokVideoQueryResponse
		url := tiktokAPIBase + "/video/query/?fields=id,view_count,like_count,comment_count,share_count"
		if err := a.postJSON(ctx, creds, url, payload, &queryResp); err != nil {
			return nil, err
		}
		for _, video := range queryResp.Data.Videos {
			stats = append(stats, VideoStats{
				RemoteID: video.ID,
				Views:    video.ViewCount,
				Likes:    video.LikeCount,
				Comments: video.CommentCount,
				Shares:   video.ShareCount,
			})
		}
	}
	return stats, nil
}

func (a *tiktokAdapter) Delete(ctx context.Context, creds Credentials, remoteID string) error {
	// No public delete endpoint in the content API; removing the local
	// record is the whole operation.
	return nil
}

func (a *tiktokAdapter) postJSON(ctx context.Context, creds Credentials, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return authErrorf("tiktok: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding tiktok response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tiktok api: unexpected status %d", resp.StatusCode)
	}
	return nil
}
