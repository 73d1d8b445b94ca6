package platforms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrAuth marks 401/403 responses so callers can trigger a token
	// refresh instead of treating it like an empty result.
	ErrAuth = errors.New("platform auth failed")
	// ErrStorageFetch distinguishes "could not read the asset from
	// object storage" from "the platform rejected the content".
	ErrStorageFetch = errors.New("object storage fetch failed")
	// ErrNotSupported marks capabilities a platform's API does not
	// offer (e.g. TikTok metadata updates).
	ErrNotSupported = errors.New("not supported by platform")
	// ErrRemoteGone marks a 404 from the platform. Deletes treat it as
	// success so a retried delete stays idempotent.
	ErrRemoteGone = errors.New("remote content not found")
)

func authErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, args...))
}

// fetchAsset buffers the full object from its presigned read URL.
// Used by platforms that push bytes themselves (TikTok, LinkedIn).
func fetchAsset(ctx context.Context, asset Asset) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFetch, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrStorageFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFetch, err)
	}
	return data, nil
}

// openAsset returns a streaming reader over the object for platforms
// that accept a stream directly (YouTube).
func openAsset(ctx context.Context, asset Asset) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFetch, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %d", ErrStorageFetch, resp.StatusCode)
	}
	return resp.Body, nil
}

// chunkIDs splits ids into batches respecting a platform's per-call
// ceiling.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
