package suggestions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cardfolio/cardfolio/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.SuggestionsConfig{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		RatePerSecond:  100,
		TimeoutSeconds: 2,
	}, slog.Default())
}

func TestSearch(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search"); got != "zelda" {
			t.Errorf("search param = %q, want %q", got, "zelda")
		}
		if got := r.URL.Query().Get("page_size"); got != "10" {
			t.Errorf("page_size param = %q, want %q", got, "10")
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key param = %q, want %q", got, "test-key")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"name":"The Legend of Zelda","background_image":"https://img.example/zelda.jpg"},
			{"name":"Zelda II","background_image":""}
		]}`))
	})

	got, err := client.Search(context.Background(), "zelda")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(got))
	}
	if got[0].Title != "The Legend of Zelda" || got[0].Image != "https://img.example/zelda.jpg" {
		t.Fatalf("unexpected first suggestion: %+v", got[0])
	}
	if got[1].Image != "" {
		t.Fatalf("expected empty image for second suggestion, got %q", got[1].Image)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for empty queries")
	})
	if _, err := client.Search(context.Background(), ""); !errors.Is(err, ErrQueryRequired) {
		t.Fatalf("Search(\"\") error = %v, want ErrQueryRequired", err)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := client.Search(context.Background(), "zelda"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("Search() error = %v, want ErrUpstream", err)
	}
}

func TestSearchBadPayload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	if _, err := client.Search(context.Background(), "zelda"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("Search() error = %v, want ErrUpstream", err)
	}
}
