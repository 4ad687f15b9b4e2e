// Package webauth keeps the user-scoped catalog clients obtained through the
// authorization-code flow, keyed by an opaque session cookie.
package webauth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"

	"copycheck-go-srv/internal/catalog"
)

const cookieName = "copycheck_session"

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*catalog.Client
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*catalog.Client)}
}

// Create registers the user's catalog client under a fresh session ID and
// sets the cookie.
func (s *SessionStore) Create(w http.ResponseWriter, client *catalog.Client) string {
	id := newSessionID()

	s.mu.Lock()
	s.sessions[id] = client
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Client returns the catalog client bound to the request's session, if any.
func (s *SessionStore) Client(r *http.Request) (*catalog.Client, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.sessions[cookie.Value]
	return client, ok
}

// Destroy drops the request's session and expires the cookie.
func (s *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(cookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func newSessionID() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// nothing sensible to do but crash loudly.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
