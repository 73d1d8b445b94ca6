package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVimeoDeleteGoneIsSuccess(t *testing.T) {
	var deletes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deletes++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := &vimeoAdapter{client: srv.Client(), baseURL: srv.URL}
	creds := Credentials{AccessToken: "tok"}

	// Deleting the same remote twice must stay a success.
	assert.NoError(t, a.Delete(context.Background(), creds, "12345"))
	assert.NoError(t, a.Delete(context.Background(), creds, "12345"))
	assert.Equal(t, 2, deletes)
}

func TestVimeoDeleteRealErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := &vimeoAdapter{client: srv.Client(), baseURL: srv.URL}
	err := a.Delete(context.Background(), Credentials{AccessToken: "tok"}, "12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
