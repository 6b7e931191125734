package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackday/racer/pkg/core"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000/", "secret123")
	require.NotNil(t, c)
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret123", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr string
	}{
		{"ok", http.StatusOK, ""},
		{"server error", http.StatusInternalServerError, "healthcheck returned status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/healthcheck", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "").Healthcheck(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	err := New("http://127.0.0.1:1", "").Healthcheck(context.Background())
	assert.ErrorContains(t, err, "healthcheck request failed")
}

func TestUpload_Success(t *testing.T) {
	received := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "trackName", "raceName", "raceDuration", "tag"} {
			received[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "Sprint_20260501_200000.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0644))

	err := New(server.URL, "mysecret").Upload(context.Background(), testFile, core.UploadMetadata{
		TrackName:    "oval",
		RaceName:     "Sprint",
		RaceDuration: 93.5,
		Tag:          "club",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":       "mysecret",
		"filename":     "Sprint_20260501_200000.json.gz",
		"trackName":    "oval",
		"raceName":     "Sprint",
		"raceDuration": "93.500000",
		"tag":          "club",
	}, received)
	assert.Equal(t, "test content", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	assert.ErrorContains(t, err, "failed to open file")
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("content"), 0644))

	err := New(server.URL, "wrong-secret").Upload(context.Background(), testFile, core.UploadMetadata{})
	assert.EqualError(t, err, "upload returned status 403")
}

func TestUpload_Cancelled(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("content"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New("http://127.0.0.1:1", "").Upload(ctx, testFile, core.UploadMetadata{})
	assert.ErrorContains(t, err, "upload request failed")
}
