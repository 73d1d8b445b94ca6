package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLinkedinTestAdapter(srv *httptest.Server) *linkedinAdapter {
	return &linkedinAdapter{client: srv.Client(), baseURL: srv.URL}
}

func TestLinkedinUploadImageSinglePut(t *testing.T) {
	var (
		imagePuts  int
		videoCalls int
		postedBody string
	)

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png-bytes"))
	})
	mux.HandleFunc("/rest/images", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "initializeUpload", r.URL.Query().Get("action"))
		w.Write([]byte(`{"value":{"image":"urn:li:image:9","uploadUrl":"` + srv.URL + `/image-put"}}`))
	})
	mux.HandleFunc("/image-put", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		imagePuts++
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/rest/videos", func(w http.ResponseWriter, r *http.Request) {
		videoCalls++
		w.WriteHeader(http.StatusBadRequest)
	})
	mux.HandleFunc("/rest/posts", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := httputil.DumpRequest(r, true)
		postedBody = string(raw)
		w.Header().Set("x-restli-id", "urn:li:share:7")
		w.WriteHeader(http.StatusCreated)
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	a := newLinkedinTestAdapter(srv)
	asset := Asset{URL: srv.URL + "/asset", ContentType: "image/png", Size: 9}
	meta := Metadata{Title: "hello", Privacy: "public"}

	result, err := a.Upload(context.Background(), Credentials{AccessToken: "tok", AccountID: "me"}, asset, meta)
	require.NoError(t, err)

	assert.Equal(t, "urn:li:share:7", result.RemoteID)
	assert.Equal(t, 1, imagePuts)
	assert.Zero(t, videoCalls, "images must not go through the video flow")
	assert.Contains(t, postedBody, "urn:li:image:9")
}

func TestLinkedinUploadTextPostHasNoMedia(t *testing.T) {
	var mediaCalls int
	var postedBody string

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/images", func(w http.ResponseWriter, r *http.Request) { mediaCalls++ })
	mux.HandleFunc("/rest/videos", func(w http.ResponseWriter, r *http.Request) { mediaCalls++ })
	mux.HandleFunc("/rest/posts", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := httputil.DumpRequest(r, true)
		postedBody = string(raw)
		w.Header().Set("x-restli-id", "urn:li:share:8")
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := newLinkedinTestAdapter(srv)
	result, err := a.Upload(context.Background(), Credentials{AccessToken: "tok", AccountID: "me"},
		Asset{}, Metadata{Title: "just words"})
	require.NoError(t, err)

	assert.Equal(t, "urn:li:share:8", result.RemoteID)
	assert.Zero(t, mediaCalls, "text posts register no media")
	assert.NotContains(t, postedBody, `"content"`)
}

func TestLinkedinDeleteGoneIsSuccess(t *testing.T) {
	var deletes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deletes++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := newLinkedinTestAdapter(srv)
	creds := Credentials{AccessToken: "tok", AccountID: "me"}

	// Deleting the same remote twice must stay a success.
	assert.NoError(t, a.Delete(context.Background(), creds, "urn:li:share:7"))
	assert.NoError(t, a.Delete(context.Background(), creds, "urn:li:share:7"))
	assert.Equal(t, 2, deletes)
}

func TestLinkedinDeleteRealErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := newLinkedinTestAdapter(srv)
	err := a.Delete(context.Background(), Credentials{AccessToken: "tok"}, "urn:li:share:7")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 500"))
}

func TestLinkedinVideoUploadFinalizes(t *testing.T) {
	var finalized bool

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4-bytes"))
	})
	mux.HandleFunc("/rest/videos", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "initializeUpload":
			w.Write([]byte(`{"value":{"video":"urn:li:video:3","uploadToken":"t",
				"uploadInstructions":[{"uploadUrl":"` + srv.URL + `/part","firstByte":0,"lastByte":8}]}}`))
		case "finalizeUpload":
			finalized = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/part", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", "etag-1")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/rest/posts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-restli-id", "urn:li:share:9")
		w.WriteHeader(http.StatusCreated)
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	a := newLinkedinTestAdapter(srv)
	asset := Asset{URL: srv.URL + "/asset", ContentType: "video/mp4", Size: 9}

	result, err := a.Upload(context.Background(), Credentials{AccessToken: "tok", AccountID: "me"},
		asset, Metadata{Title: "clip"})
	require.NoError(t, err)

	assert.Equal(t, "urn:li:share:9", result.RemoteID)
	assert.True(t, finalized)
}
