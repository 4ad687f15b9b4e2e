package webauth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zmb3/spotify/v2"

	"copycheck-go-srv/internal/catalog"
)

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	client := catalog.New(spotify.New(http.DefaultClient), http.DefaultClient, nil)

	rec := httptest.NewRecorder()
	id := store.Create(rec, client)
	if id == "" {
		t.Fatal("empty session id")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != id {
		t.Fatalf("cookies = %v, want one session cookie with id", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	got, ok := store.Client(req)
	if !ok || got != client {
		t.Fatal("session lookup failed")
	}

	rec2 := httptest.NewRecorder()
	store.Destroy(rec2, req)
	if _, ok := store.Client(req); ok {
		t.Fatal("session survived Destroy")
	}

	expired := rec2.Result().Cookies()
	if len(expired) != 1 || expired[0].MaxAge != -1 {
		t.Errorf("Destroy cookies = %v, want expiring cookie", expired)
	}
}

func TestSessionIDsUnique(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := store.Create(httptest.NewRecorder(), nil)
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestClientWithoutCookie(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := store.Client(req); ok {
		t.Fatal("lookup without cookie succeeded")
	}
}
