package loe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientFetch(t *testing.T) {
	payload := loadFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/ld+json")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dump := filepath.Join(t.TempDir(), "dumps", "last.json")
	c := NewClient(srv.URL, 5*time.Second, 0, dump, quietLogger())
	c.now = func() time.Time { return time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC) }

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Groups, 4)
	assert.Equal(t, "2025-11-01T10:00:00Z", snap.Metadata["fetched_at"])

	dumped, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, payload, dumped)
}

func TestClientFetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dump := filepath.Join(t.TempDir(), "last.json")
	c := NewClient(srv.URL, 5*time.Second, 0, dump, quietLogger())

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	_, statErr := os.Stat(dump)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClientFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(loadFixture(t))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, 5*time.Second, 60, "", quietLogger())
	_, err := c.Fetch(ctx)
	assert.Error(t, err)
}
