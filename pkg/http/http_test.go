package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cowmonk/tinypkg/pkg/auth"
	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("archive contents"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sub", "archive.tar.gz")
	client := NewClient(5*time.Second, nil)
	require.NoError(t, client.DownloadFile(context.Background(), srv.URL+"/archive.tar.gz", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive contents", string(data))
}

func TestDownloadFile_AppliesHostAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "u" || pass != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("secret"))
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()
	client := NewClient(5*time.Second, map[string]auth.Authenticator{
		host: &auth.BasicAuth{Username: "u", Password: "p"},
	})

	dest := filepath.Join(t.TempDir(), "file")
	require.NoError(t, client.DownloadFile(context.Background(), srv.URL+"/file", dest))
}

func TestDownloadFile_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "file")
	client := NewClient(5*time.Second, nil)
	err := client.DownloadFile(context.Background(), srv.URL+"/missing", dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHTTPStatus)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "partial file should not be left behind")
}
