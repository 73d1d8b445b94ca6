package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/publora/publora/internal/models"
	"github.com/publora/publora/internal/transfer"
)

const (
	linkedinAPIBase = "https://api.linkedin.com"
	linkedinVersion = "202406"

	// Comment fan-out runs one request per recent post; keep the
	// parallelism modest to stay inside LinkedIn's rate limits.
	linkedinCommentWorkers = 4
	linkedinRecentPosts    = 20
)

type linkedinAdapter struct {
	client  *http.Client
	baseURL string
}

func NewLinkedinAdapter() Adapter {
	return &linkedinAdapter{client: &http.Client{Timeout: 2 * time.Minute}, baseURL: linkedinAPIBase}
}

func (a *linkedinAdapter) Name() string { return models.PlatformLinkedin }

func (a *linkedinAdapter) NativeScheduling() bool { return false }

func mapLinkedinVisibility(privacy string) string {
	if privacy == models.PrivacyPrivate || privacy == models.PrivacyMutual {
		return "CONNECTIONS"
	}
	return "PUBLIC"
}

func linkedinPersonURN(accountID string) string {
	if strings.HasPrefix(accountID, "urn:") {
		return accountID
	}
	return "urn:li:person:" + accountID
}

// Upload creates a post carrying whatever the asset is: videos run
// LinkedIn's three-step flow, images a single-PUT initializeUpload,
// and an empty asset becomes a commentary-only text post.
func (a *linkedinAdapter) Upload(ctx context.Context, creds Credentials, asset Asset, meta Metadata) (*UploadResult, error) {
	owner := linkedinPersonURN(creds.AccountID)

	var content *transfer.LinkedinPostContent
	switch {
	case asset.URL == "":
		// Text post, no media to register.
	case strings.HasPrefix(asset.ContentType, "image/"):
		imageURN, err := a.uploadImage(ctx, creds, owner, asset)
		if err != nil {
			return nil, err
		}
		content = &transfer.LinkedinPostContent{
			Media: transfer.LinkedinMediaContent{ID: imageURN},
		}
	default:
		videoURN, err := a.uploadVideo(ctx, creds, owner, asset)
		if err != nil {
			return nil, err
		}
		content = &transfer.LinkedinPostContent{
			Media: transfer.LinkedinMediaContent{Title: meta.Title, ID: videoURN},
		}
	}

	postReq := transfer.LinkedinPostRequest{
		Author:         owner,
		Commentary:     linkedinCommentary(meta),
		Visibility:     mapLinkedinVisibility(meta.Privacy),
		Distribution:   transfer.LinkedinDistribution{FeedDistribution: "MAIN_FEED"},
		Content:        content,
		LifecycleState: "PUBLISHED",
	}

	var postURN string
	capture := func(resp *http.Response) {
		postURN = resp.Header.Get("x-restli-id")
	}
	if err := a.do(ctx, creds, http.MethodPost, "/rest/posts", "", postReq, nil, capture); err != nil {
		return nil, err
	}
	if postURN == "" {
		return nil, fmt.Errorf("linkedin post creation returned no id")
	}

	return &UploadResult{
		RemoteID:  postURN,
		RemoteURL: "https://www.linkedin.com/feed/update/" + postURN,
	}, nil
}

// uploadVideo runs the three-step video flow: initializeUpload, one
// PUT per instructed byte range capturing each part's ETag, then
// finalizeUpload with the collected ETags.
func (a *linkedinAdapter) uploadVideo(ctx context.Context, creds Credentials, owner string, asset Asset) (string, error) {
	data, err := fetchAsset(ctx, asset)
	if err != nil {
		return "", err
	}

	initReq := transfer.LinkedinInitUploadRequest{
		InitializeUploadRequest: transfer.LinkedinInitUploadSpec{
			Owner:         owner,
			FileSizeBytes: int64(len(data)),
		},
	}
	var initResp transfer.LinkedinInitUploadResponse
	if err := a.do(ctx, creds, http.MethodPost, "/rest/videos?action=initializeUpload", "", initReq, &initResp, nil); err != nil {
		return "", err
	}
	if initResp.Value.Video == "" || len(initResp.Value.UploadInstructions) == 0 {
		return "", fmt.Errorf("linkedin upload init returned no instructions")
	}

	etags := make([]string, 0, len(initResp.Value.UploadInstructions))
	for _, part := range initResp.Value.UploadInstructions {
		if part.FirstByte < 0 || part.LastByte >= int64(len(data)) || part.FirstByte > part.LastByte {
			return "", fmt.Errorf("linkedin upload instruction out of range: %d-%d", part.FirstByte, part.LastByte)
		}
		etag, err := a.putPart(ctx, part.UploadURL, data[part.FirstByte:part.LastByte+1])
		if err != nil {
			return "", err
		}
		if etag == "" {
			return "", fmt.Errorf("linkedin part upload: missing etag")
		}
		etags = append(etags, etag)
	}

	finalizeReq := transfer.LinkedinFinalizeUploadRequest{
		FinalizeUploadRequest: transfer.LinkedinFinalizeUploadSpec{
			Video:           initResp.Value.Video,
			UploadToken:     initResp.Value.UploadToken,
			UploadedPartIds: etags,
		},
	}
	if err := a.do(ctx, creds, http.MethodPost, "/rest/videos?action=finalizeUpload", "", finalizeReq, nil, nil); err != nil {
		return "", err
	}
	return initResp.Value.Video, nil
}

// uploadImage is a single PUT against the url initializeUpload hands
// back; images have no finalize step.
func (a *linkedinAdapter) uploadImage(ctx context.Context, creds Credentials, owner string, asset Asset) (string, error) {
	data, err := fetchAsset(ctx, asset)
	if err != nil {
		return "", err
	}

	initReq := transfer.LinkedinImageInitRequest{
		InitializeUploadRequest: transfer.LinkedinImageInitSpec{Owner: owner},
	}
	var initResp transfer.LinkedinImageInitResponse
	if err := a.do(ctx, creds, http.MethodPost, "/rest/images?action=initializeUpload", "", initReq, &initResp, nil); err != nil {
		return "", err
	}
	if initResp.Value.Image == "" || initResp.Value.UploadURL == "" {
		return "", fmt.Errorf("linkedin image init returned no upload url")
	}

	if _, err := a.putPart(ctx, initResp.Value.UploadURL, data); err != nil {
		return "", err
	}
	return initResp.Value.Image, nil
}

func linkedinCommentary(meta Metadata) string {
	text := meta.Title
	if meta.Description != "" {
		text = text + "\n\n" + meta.Description
	}
	if len(meta.Tags) > 0 {
		hashtags := make([]string, 0, len(meta.Tags))
		for _, tag := range meta.Tags {
			hashtags = append(hashtags, "#"+strings.ReplaceAll(tag, " ", ""))
		}
		text = text + "\n\n" + strings.Join(hashtags, " ")
	}
	return text
}

func (a *linkedinAdapter) Update(ctx context.Context, creds Credentials, remoteID string, meta Metadata) (*UploadResult, error) {
	patch := transfer.LinkedinPostPatch{
		Patch: transfer.LinkedinPatchSet{
			Set: map[string]any{"commentary": linkedinCommentary(meta)},
		},
	}
	path := "/rest/posts/" + url.PathEscape(remoteID)
	if err := a.do(ctx, creds, http.MethodPost, path, "PARTIAL_UPDATE", patch, nil, nil); err != nil {
		return nil, err
	}
	return &UploadResult{
		RemoteID:  remoteID,
		RemoteURL: "https://www.linkedin.com/feed/update/" + remoteID,
	}, nil
}

// FetchStats reads socialActions per post. LinkedIn exposes no view
// count on this surface so Views stays zero.
func (a *linkedinAdapter) FetchStats(ctx context.Context, creds Credentials, remoteIDs []string) ([]VideoStats, error) {
	var stats []VideoStats
	for _, remoteID := range remoteIDs {
		var actions transfer.LinkedinSocialActions
		path := "/rest/socialActions/" + url.PathEscape(remoteID)
		if err := a.do(ctx, creds, http.MethodGet, path, "", nil, &actions, nil); err != nil {
			return nil, err
		}
		stats = append(stats, VideoStats{
			RemoteID: remoteID,
			Likes:    actions.LikesSummary.TotalLikes,
			Comments: actions.CommentsSummary.AggregatedTotalComments,
		})
	}
	return stats, nil
}

func (a *linkedinAdapter) Delete(ctx context.Context, creds Credentials, remoteID string) error {
	err := a.do(ctx, creds, http.MethodDelete, "/rest/posts/"+url.PathEscape(remoteID), "", nil, nil, nil)
	if errors.Is(err, ErrRemoteGone) {
		return nil
	}
	return err
}

// FetchComments has no author-wide endpoint, so it lists the owner's
// recent posts and fans out one socialActions call per post.
func (a *linkedinAdapter) FetchComments(ctx context.Context, creds Credentials, ownerID string, since time.Time) ([]CommentData, error) {
	owner := linkedinPersonURN(ownerID)

	var posts transfer.LinkedinPostList
	listPath := fmt.Sprintf("/rest/posts?author=%s&q=author&count=%d", url.QueryEscape(owner), linkedinRecentPosts)
	if err := a.do(ctx, creds, http.MethodGet, listPath, "", nil, &posts, nil); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		all      []CommentData
	)
	sem := make(chan struct{}, linkedinCommentWorkers)

	for _, post := range posts.Elements {
		wg.Add(1)
		sem <- struct{}{}
		go func(postURN string) {
			defer wg.Done()
			defer func() { <-sem }()

			comments, err := a.fetchPostComments(ctx, creds, postURN, since)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			all = append(all, comments...)
		}(post.ID)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(all, func(i, j int) bool { return all[i].PublishedAt.Before(all[j].PublishedAt) })
	return all, nil
}

func (a *linkedinAdapter) fetchPostComments(ctx context.Context, creds Credentials, postURN string, since time.Time) ([]CommentData, error) {
	var list transfer.LinkedinCommentList
	path := "/rest/socialActions/" + url.PathEscape(postURN) + "/comments"
	if err := a.do(ctx, creds, http.MethodGet, path, "", nil, &list, nil); err != nil {
		return nil, err
	}

	var out []CommentData
	for _, c := range list.Elements {
		publishedAt := time.UnixMilli(c.Created.Time).UTC()
		if !since.IsZero() && !publishedAt.After(since) {
			continue
		}
		externalID := c.CommentURN
		if externalID == "" {
			externalID = c.ID
		}
		out = append(out, CommentData{
			ExternalID:       externalID,
			ExternalParentID: c.ParentComment,
			ExternalPostID:   postURN,
			AuthorExternalID: c.Actor,
			AuthorProfileURL: linkedinActorProfileURL(c.Actor),
			Content:          c.Message.Text,
			PublishedAt:      publishedAt,
		})
	}
	return out, nil
}

func linkedinActorProfileURL(actorURN string) string {
	id := actorURN
	if idx := strings.LastIndex(actorURN, ":"); idx >= 0 {
		id = actorURN[idx+1:]
	}
	return "https://www.linkedin.com/in/" + id
}

// Reply posts under the thread named inside the comment URN. A
// comment urn looks like urn:li:comment:(urn:li:ugcPost:123,456);
// replying needs the inner post urn plus the full parent urn.
func (a *linkedinAdapter) Reply(ctx context.Context, creds Credentials, parentExternalID, text string) (string, error) {
	postURN, isComment := linkedinThreadURN(parentExternalID)

	create := transfer.LinkedinCommentCreate{
		Actor:   linkedinPersonURN(creds.AccountID),
		Message: transfer.LinkedinCommentMessage{Text: text},
	}
	if isComment {
		create.ParentComment = parentExternalID
	}

	var created transfer.LinkedinComment
	path := "/rest/socialActions/" + url.PathEscape(postURN) + "/comments"
	if err := a.do(ctx, creds, http.MethodPost, path, "", create, &created, nil); err != nil {
		return "", err
	}
	if created.CommentURN != "" {
		return created.CommentURN, nil
	}
	return created.ID, nil
}

func (a *linkedinAdapter) DeleteComment(ctx context.Context, creds Credentials, externalID string) error {
	postURN, isComment := linkedinThreadURN(externalID)
	if !isComment {
		return fmt.Errorf("linkedin comment id %q: %w", externalID, ErrNotSupported)
	}
	commentID := linkedinCommentID(externalID)

	path := fmt.Sprintf("/rest/socialActions/%s/comments/%s?actor=%s",
		url.PathEscape(postURN), url.PathEscape(commentID),
		url.QueryEscape(linkedinPersonURN(creds.AccountID)))
	err := a.do(ctx, creds, http.MethodDelete, path, "", nil, nil, nil)
	if errors.Is(err, ErrRemoteGone) {
		return nil
	}
	return err
}

// linkedinThreadURN returns the post urn a comment urn belongs to. For
// a bare post urn it returns the input and false.
func linkedinThreadURN(urn string) (string, bool) {
	open := strings.Index(urn, "(")
	comma := strings.LastIndex(urn, ",")
	if !strings.HasPrefix(urn, "urn:li:comment:") || open < 0 || comma < open {
		return urn, false
	}
	return urn[open+1 : comma], true
}

func linkedinCommentID(commentURN string) string {
	comma := strings.LastIndex(commentURN, ",")
	end := strings.LastIndex(commentURN, ")")
	if comma < 0 || end < comma {
		return commentURN
	}
	return commentURN[comma+1 : end]
}

func (a *linkedinAdapter) putPart(ctx context.Context, uploadURL string, part []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(part))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(part))

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("linkedin part upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("linkedin part upload: status %d", resp.StatusCode)
	}
	return resp.Header.Get("ETag"), nil
}

func (a *linkedinAdapter) do(ctx context.Context, creds Credentials, method, path, restliMethod string, payload, out any, inspect func(*http.Response)) error {
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
	req.Header.Set("LinkedIn-Version", linkedinVersion)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	if restliMethod != "" {
		req.Header.Set("X-RestLi-Method", restliMethod)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("linkedin api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return authErrorf("linkedin: status %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: linkedin %s", ErrRemoteGone, path)
	}
	if resp.StatusCode >= 300 {
		var apiErr transfer.LinkedinErrorResponse
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("linkedin api: status %d: %s", resp.StatusCode, apiErr.Message)
	}

	if inspect != nil {
		inspect(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding linkedin response: %w", err)
		}
	}
	return nil
}
