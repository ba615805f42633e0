package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ellievs/covermatch/internal/shared"
)

func newJikanServer(t *testing.T, calls *atomic.Int32, imageURL string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/anime" {
			t.Errorf("expected path /anime, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit 1, got %s", r.URL.Query().Get("limit"))
		}
		var data []map[string]any
		if imageURL != "" {
			data = append(data, map[string]any{
				"mal_id": 1,
				"title":  "Clannad",
				"images": map[string]any{
					"jpg": map[string]any{"large_image_url": imageURL},
				},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func newJikanTestClient(server *httptest.Server) *JikanClient {
	return NewJikanClient(JikanClientOpts{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000, // keep tests fast
		Logger:            shared.NewLogger(io.Discard),
	})
}

func TestJikanClient_AnimeCover(t *testing.T) {
	t.Run("Returns Large Image Of First Result", func(t *testing.T) {
		var calls atomic.Int32
		server := newJikanServer(t, &calls, "https://cdn.example/clannad-l.jpg")
		defer server.Close()

		c := newJikanTestClient(server)
		got := c.AnimeCover(context.Background(), "Clannad")
		if got != "https://cdn.example/clannad-l.jpg" {
			t.Errorf("unexpected image URL %q", got)
		}
	})

	t.Run("Blank Origin Is A Miss Without Calling Out", func(t *testing.T) {
		var calls atomic.Int32
		server := newJikanServer(t, &calls, "x")
		defer server.Close()

		c := newJikanTestClient(server)
		if got := c.AnimeCover(context.Background(), "   "); got != "" {
			t.Errorf("expected miss, got %q", got)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no HTTP calls, got %d", calls.Load())
		}
	})

	t.Run("Caches Hits By Normalized Origin", func(t *testing.T) {
		var calls atomic.Int32
		server := newJikanServer(t, &calls, "https://cdn.example/aot.jpg")
		defer server.Close()

		c := newJikanTestClient(server)
		first := c.AnimeCover(context.Background(), "Attack on Titan")
		second := c.AnimeCover(context.Background(), "  ATTACK ON TITAN ")
		if first != second {
			t.Errorf("expected identical cached result, got %q and %q", first, second)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 HTTP call, got %d", calls.Load())
		}
	})

	t.Run("Caches Misses", func(t *testing.T) {
		var calls atomic.Int32
		server := newJikanServer(t, &calls, "")
		defer server.Close()

		c := newJikanTestClient(server)
		if got := c.AnimeCover(context.Background(), "Unknown Series"); got != "" {
			t.Errorf("expected miss, got %q", got)
		}
		if got := c.AnimeCover(context.Background(), "Unknown Series"); got != "" {
			t.Errorf("expected cached miss, got %q", got)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 HTTP call for repeated miss, got %d", calls.Load())
		}
	})

	t.Run("Rate Limit Response Resolves To Miss", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := newJikanTestClient(server)
		if got := c.AnimeCover(context.Background(), "Clannad"); got != "" {
			t.Errorf("expected miss on 429, got %q", got)
		}
	})

	t.Run("Server Error Resolves To Miss", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		c := newJikanTestClient(server)
		if got := c.AnimeCover(context.Background(), "Clannad"); got != "" {
			t.Errorf("expected miss on server error, got %q", got)
		}
	})

	t.Run("ClearCache Forces Refetch", func(t *testing.T) {
		var calls atomic.Int32
		server := newJikanServer(t, &calls, "https://cdn.example/img.jpg")
		defer server.Close()

		c := newJikanTestClient(server)
		c.AnimeCover(context.Background(), "Clannad")
		c.ClearCache()
		c.AnimeCover(context.Background(), "Clannad")
		if calls.Load() != 2 {
			t.Errorf("expected 2 HTTP calls after cache clear, got %d", calls.Load())
		}
	})
}
