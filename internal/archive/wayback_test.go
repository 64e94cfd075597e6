package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSnapshotUsesContentLocation(t *testing.T) {
	t.Parallel()

	target := "https://outlet.example.com/2024/05/plant-closure"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.String(), "outlet.example.com")
		w.Header().Set("Content-Location", "/web/20240514093000/"+target)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL + "/"}, zap.NewNop())
	got := client.Snapshot(context.Background(), target)
	require.Equal(t, "https://web.archive.org/web/20240514093000/"+target, got)
}

func TestSnapshotFallbackWithoutContentLocation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL + "/"}, zap.NewNop())
	got := client.Snapshot(context.Background(), "https://outlet.example.com/story")
	require.Equal(t, "https://web.archive.org/web/https://outlet.example.com/story", got)
}

func TestSnapshotNon2xxReturnsEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL + "/"}, zap.NewNop())
	require.Empty(t, client.Snapshot(context.Background(), "https://outlet.example.com/story"))
}

func TestSnapshotUnreachableEndpointReturnsEmpty(t *testing.T) {
	t.Parallel()

	client := New(Config{Endpoint: "http://127.0.0.1:1/save/"}, zap.NewNop())
	require.Empty(t, client.Snapshot(context.Background(), "https://outlet.example.com/story"))
}

func TestSnapshotAbsoluteContentLocation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Location", "https://mirror.archive.example.com/web/123/story")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL + "/"}, zap.NewNop())
	got := client.Snapshot(context.Background(), "https://outlet.example.com/story")
	require.Equal(t, "https://mirror.archive.example.com/web/123/story", got)
}
