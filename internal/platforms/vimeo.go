package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/transfer"
)

const vimeoAPIBase = "https://api.vimeo.com"

type vimeoAdapter struct {
	client  *http.Client
	baseURL string
}

func NewVimeoAdapter() Adapter {
	return &vimeoAdapter{client: &http.Client{Timeout: 2 * time.Minute}, baseURL: vimeoAPIBase}
}

func (a *vimeoAdapter) Name() string { return models.PlatformVimeo }

// Vimeo's API has no publish-at field; privacy flips would need a
// second call at the scheduled time, so the broker holds the task
// until then instead.
func (a *vimeoAdapter) NativeScheduling() bool { return false }

func mapVimeoPrivacy(privacy string) string {
	switch privacy {
	case models.PrivacyPrivate, models.PrivacyMutual:
		return "nobody"
	case models.PrivacyUnlisted:
		return "unlisted"
	default:
		return "anybody"
	}
}

// vimeoVideoID extracts "12345" from a "/videos/12345" uri.
func vimeoVideoID(uri string) string {
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

// Upload hands Vimeo the presigned read URL and lets the platform
// pull the bytes itself; nothing is buffered locally.
func (a *vimeoAdapter) Upload(ctx context.Context, creds Credentials, asset Asset, meta Metadata) (*UploadResult, error) {
	payload := transfer.VimeoUploadRequest{
		Upload: transfer.VimeoUploadSpec{
			Approach: "pull",
			Size:     asset.Size,
			Link:     asset.URL,
		},
		Name:        meta.Title,
		Description: meta.Description,
		Privacy:     transfer.VimeoPrivacySpec{View: mapVimeoPrivacy(meta.Privacy)},
	}

	var video transfer.VimeoVideoResponse
	if err := a.do(ctx, creds, http.MethodPost, "/me/videos", payload, &video); err != nil {
		return nil, err
	}
	if video.URI == "" {
		return nil, fmt.Errorf("vimeo upload rejected: empty video uri")
	}

	return &UploadResult{
		RemoteID:  vimeoVideoID(video.URI),
		RemoteURL: video.Link,
	}, nil
}

func (a *vimeoAdapter) Update(ctx context.Context, creds Credentials, remoteID string, meta Metadata) (*UploadResult, error) {
	privacy := transfer.VimeoPrivacySpec{View: mapVimeoPrivacy(meta.Privacy)}
	payload := transfer.VimeoVideoPatch{
		Name:        meta.Title,
		Description: meta.Description,
		Privacy:     &privacy,
	}

	var video transfer.VimeoVideoResponse
	if err := a.do(ctx, creds, http.MethodPatch, "/videos/"+remoteID, payload, &video); err != nil {
		return nil, err
	}

	return &UploadResult{
		RemoteID:  remoteID,
		RemoteURL: video.Link,
	}, nil
}

func (a *vimeoAdapter) FetchStats(ctx context.Context, creds Credentials, remoteIDs []string) ([]VideoStats, error) {
	// Vimeo has no batch stats endpoint; one call per video.
	var stats []VideoStats
	for _, remoteID := range remoteIDs {
		var video transfer.VimeoVideoResponse
		path := "/videos/" + remoteID + "?fields=uri,stats,metadata.connections.likes.total,metadata.connections.comments.total"
		if err := a.do(ctx, creds, http.MethodGet, path, nil, &video); err != nil {
			return nil, err
		}
		stats = append(stats, VideoStats{
			RemoteID: remoteID,
			Views:    video.Stats.Plays,
			Likes:    video.Metadata.Connections.Likes.Total,
			Comments: video.Metadata.Connections.Comments.Total,
		})
	}
	return stats, nil
}

func (a *vimeoAdapter) Delete(ctx context.Context, creds Credentials, remoteID string) error {
	err := a.do(ctx, creds, http.MethodDelete, "/videos/"+remoteID, nil, nil)
	if errors.Is(err, ErrRemoteGone) {
		return nil
	}
	return err
}

func (a *vimeoAdapter) do(ctx context.Context, creds Credentials, method, path string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.vimeo.*+json;version=3.4")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("vimeo api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return authErrorf("vimeo: status %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: vimeo %s", ErrRemoteGone, path)
	}
	if resp.StatusCode >= 300 {
		var apiErr transfer.VimeoErrorResponse
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("vimeo api: status %d: %s", resp.StatusCode, apiErr.Error)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding vimeo response: %w", err)
		}
	}
	return nil
}
