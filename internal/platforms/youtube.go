package platforms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/publora/publora/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTube's videos.list accepts at most 50 ids per call.
const youtubeStatsChunkSize = 50

const youtubeCategoryPeople = "22"

type youtubeAdapter struct{}

func NewYoutubeAdapter() Adapter {
	return &youtubeAdapter{}
}

func (a *youtubeAdapter) Name() string { return models.PlatformYoutube }

func (a *youtubeAdapter) NativeScheduling() bool { return true }

func (a *youtubeAdapter) service(ctx context.Context, creds Credentials) (*youtube.Service, error) {
	token := &oauth2.Token{AccessToken: creds.AccessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return youtube.NewService(ctx, option.WithHTTPClient(client))
}

func mapYoutubePrivacy(privacy string) string {
	switch privacy {
	case models.PrivacyUnlisted:
		return "unlisted"
	case models.PrivacyPrivate, models.PrivacyMutual:
		return "private"
	default:
		return "public"
	}
}

func youtubeVideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Upload streams the object straight from its presigned URL into the
// SDK's resumable insert; the file is never buffered locally.
func (a *youtubeAdapter) Upload(ctx context.Context, creds Credentials, asset Asset, meta Metadata) (*UploadResult, error) {
	service, err := a.service(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}

	body, err := openAsset(ctx, asset)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	status := &youtube.VideoStatus{
		PrivacyStatus: mapYoutubePrivacy(meta.Privacy),
	}
	if meta.PublishAt != nil {
		// Native scheduling requires the video to stay private until
		// the platform publishes it.
		status.PrivacyStatus = "private"
		status.PublishAt = meta.PublishAt.UTC().Format(time.RFC3339)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  youtubeCategoryPeople,
		},
		Status: status,
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(body).Do()
	if err != nil {
		return nil, wrapYoutubeError(err)
	}

	return &UploadResult{
		RemoteID:  response.Id,
		RemoteURL: youtubeVideoURL(response.Id),
	}, nil
}

func (a *youtubeAdapter) Update(ctx context.Context, creds Credentials, remoteID string, meta Metadata) (*UploadResult, error) {
	service, err := a.service(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}

	status := &youtube.VideoStatus{
		PrivacyStatus: mapYoutubePrivacy(meta.Privacy),
	}
	if meta.PublishAt != nil {
		status.PrivacyStatus = "private"
		status.PublishAt = meta.PublishAt.UTC().Format(time.RFC3339)
	}

	video := &youtube.Video{
		Id: remoteID,
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  youtubeCategoryPeople,
		},
		Status: status,
	}

	response, err := service.Videos.Update([]string{"snippet", "status"}, video).Do()
	if err != nil {
		return nil, wrapYoutubeError(err)
	}

	return &UploadResult{
		RemoteID:  response.Id,
		RemoteURL: youtubeVideoURL(response.Id),
	}, nil
}

func (a *youtubeAdapter) FetchStats(ctx context.Context, creds Credentials, remoteIDs []string) ([]VideoStats, error) {
	service, err := a.service(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}

	var stats []VideoStats
	for _, chunk := range chunkIDs(remoteIDs, youtubeStatsChunkSize) {
		response, err := service.Videos.List([]string{"statistics"}).Id(chunk...).Do()
		if err != nil {
			return nil, wrapYoutubeError(err)
		}
		for _, item := range response.Items {
			if item.Statistics == nil {
				continue
			}
			stats = append(stats, VideoStats{
				RemoteID: item.Id,
				Views:    int64(item.Statistics.ViewCount),
				Likes:    int64(item.Statistics.LikeCount),
				Comments: int64(item.Statistics.CommentCount),
			})
		}
	}
	return stats, nil
}

func (a *youtubeAdapter) Delete(ctx context.Context, creds Credentials, remoteID string) error {
	service, err := a.service(ctx, creds)
	if err != nil {
		return fmt.Errorf("creating youtube service: %w", err)
	}

	if err := service.Videos.Delete(remoteID).Do(); err != nil {
		if isGoogleStatus(err, http.StatusNotFound) {
			return nil
		}
		return wrapYoutubeError(err)
	}
	return nil
}

func (a *youtubeAdapter) FetchComments(ctx context.Context, creds Credentials, ownerID string, since time.Time) ([]CommentData, error) {
	service, err := a.service(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}

	var comments []CommentData
	pageToken := ""
	for {
		call := service.CommentThreads.List([]string{"snippet", "replies"}).
			AllThreadsRelatedToChannelId(ownerID).
			MaxResults(100).
			Order("time")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, wrapYoutubeError(err)
		}

		pageDone := false
		for _, thread := range response.Items {
			if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil {
				continue
			}
			top := commentFromYoutube(thread.Snippet.TopLevelComment, thread.Snippet.VideoId, "")
			if top.PublishedAt.Before(since) {
				// Threads are time-ordered newest first; everything
				// past the watermark has been synced already.
				pageDone = true
				break
			}
			comments = append(comments, top)
			if thread.Replies != nil {
				for _, reply := range thread.Replies.Comments {
					comments = append(comments, commentFromYoutube(reply, thread.Snippet.VideoId, top.ExternalID))
				}
			}
		}

		if pageDone || response.NextPageToken == "" {
			break
		}
		pageToken = response.NextPageToken
	}

	return comments, nil
}

func commentFromYoutube(c *youtube.Comment, videoID, parentID string) CommentData {
	data := CommentData{
		ExternalID:       c.Id,
		ExternalParentID: parentID,
		ExternalPostID:   videoID,
	}
	if c.Snippet != nil {
		if c.Snippet.ParentId != "" {
			data.ExternalParentID = c.Snippet.ParentId
		}
		data.AuthorName = c.Snippet.AuthorDisplayName
		data.AuthorAvatarURL = c.Snippet.AuthorProfileImageUrl
		data.AuthorProfileURL = c.Snippet.AuthorChannelUrl
		if c.Snippet.AuthorChannelId != nil {
			data.AuthorExternalID = c.Snippet.AuthorChannelId.Value
		}
		data.Content = c.Snippet.TextOriginal
		if published, err := time.Parse(time.RFC3339, c.Snippet.PublishedAt); err == nil {
			data.PublishedAt = published
		}
	}
	return data
}

func (a *youtubeAdapter) Reply(ctx context.Context, creds Credentials, parentExternalID, text string) (string, error) {
	service, err := a.service(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("creating youtube service: %w", err)
	}

	comment := &youtube.Comment{
		Snippet: &youtube.CommentSnippet{
			ParentId:     parentExternalID,
			TextOriginal: text,
		},
	}
	response, err := service.Comments.Insert([]string{"snippet"}, comment).Do()
	if err != nil {
		return "", wrapYoutubeError(err)
	}
	return response.Id, nil
}

func (a *youtubeAdapter) DeleteComment(ctx context.Context, creds Credentials, externalID string) error {
	service, err := a.service(ctx, creds)
	if err != nil {
		return fmt.Errorf("creating youtube service: %w", err)
	}

	if err := service.Comments.Delete(externalID).Do(); err != nil {
		if isGoogleStatus(err, http.StatusNotFound) {
			return nil
		}
		return wrapYoutubeError(err)
	}
	return nil
}

func wrapYoutubeError(err error) error {
	if isGoogleStatus(err, http.StatusUnauthorized) || isGoogleStatus(err, http.StatusForbidden) {
		return authErrorf("youtube: %v", err)
	}
	return fmt.Errorf("youtube api: %w", err)
}

func isGoogleStatus(err error, code int) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == code
	}
	return false
}
