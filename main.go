package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"copycheck-go-srv/internal/catalog"
	"copycheck-go-srv/internal/checker"
	"copycheck-go-srv/internal/config"
	"copycheck-go-srv/internal/database"
	"copycheck-go-srv/internal/license"
	"copycheck-go-srv/internal/models"
	"copycheck-go-srv/internal/parser"
	"copycheck-go-srv/internal/webauth"
)

/* =========================
   Recovery Middleware
   ========================= */

func RecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC: %v\n%s", err, debug.Stack())
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

/* =========================
   JSON / SSE Helpers
   ========================= */

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println("JSON encode error:", err)
	}
}

func jsonError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func setupSSE(w http.ResponseWriter) (http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return flusher, nil
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Println("SSE marshal error:", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
	flusher.Flush()
}

/* =========================
   App
   ========================= */

var errNoCredentials = errors.New("spotify credentials not configured; use /api/v1/setup")

var oauthScopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
}

type app struct {
	db          *sql.DB
	store       *config.Store
	sessions    *webauth.SessionStore
	cls         *license.Classifier
	mb          *catalog.MusicBrainzClient
	redirectURI string

	mu     sync.Mutex
	appCat *catalog.Client
	states map[string]*spotifyauth.Authenticator
}

// appCatalog lazily builds the client-credentials catalog used for requests
// without a user session. Reset after /setup swaps the credentials.
func (a *app) appCatalog() (*catalog.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.appCat != nil {
		return a.appCat, nil
	}

	id, secret, ok := a.store.Credentials()
	if !ok {
		return nil, errNoCredentials
	}

	cfg := &clientcredentials.Config{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	a.appCat = catalog.New(spotify.New(httpClient), httpClient, a.mb)
	return a.appCat, nil
}

// catalogFor prefers the request's user session, falling back to the
// app-level client-credentials catalog.
func (a *app) catalogFor(r *http.Request) (*catalog.Client, error) {
	if cat, ok := a.sessions.Client(r); ok {
		return cat, nil
	}
	return a.appCatalog()
}

func (a *app) authenticator() (*spotifyauth.Authenticator, error) {
	id, secret, ok := a.store.Credentials()
	if !ok {
		return nil, errNoCredentials
	}
	return spotifyauth.New(
		spotifyauth.WithClientID(id),
		spotifyauth.WithClientSecret(secret),
		spotifyauth.WithRedirectURL(a.redirectURI),
		spotifyauth.WithScopes(oauthScopes...),
	), nil
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

/* =========================
   OAuth Handlers
   ========================= */

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	auth, err := a.authenticator()
	if err != nil {
		jsonError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	state := randomState()
	a.mu.Lock()
	a.states[state] = auth
	a.mu.Unlock()

	http.Redirect(w, r, auth.AuthURL(state), http.StatusFound)
}

func (a *app) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")

	a.mu.Lock()
	auth, ok := a.states[state]
	delete(a.states, state)
	a.mu.Unlock()
	if !ok {
		jsonError(w, http.StatusBadRequest, "unknown oauth state")
		return
	}

	token, err := auth.Token(r.Context(), state, r)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "token exchange failed: "+err.Error())
		return
	}

	// Long-lived client: do not tie it to the callback request's context.
	httpClient := auth.Client(context.Background(), token)
	cat := catalog.New(spotify.New(httpClient), httpClient, a.mb)
	a.sessions.Create(w, cat)

	writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated"})
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Destroy(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

/* =========================
   Setup Handler
   ========================= */

func (a *app) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		Code         string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !a.store.VerifySetupCode(req.Code) {
		jsonError(w, http.StatusUnauthorized, "invalid setup code")
		return
	}

	if err := a.store.Save(config.Credentials{
		ClientID:     strings.TrimSpace(req.ClientID),
		ClientSecret: strings.TrimSpace(req.ClientSecret),
	}); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Drop the cached app client so the new credentials take effect.
	a.mu.Lock()
	a.appCat = nil
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

/* =========================
   Check Handlers (SSE)
   ========================= */

// streamChecks runs the scan loop over tracks, emitting one processing event
// per track and a final complete event with the full report.
func (a *app) streamChecks(w http.ResponseWriter, r *http.Request, chk *checker.Checker, tracks []models.Track, sourceName, sourceType string) {
	ctx := r.Context()

	flusher, err := setupSSE(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	send := func(v any) { sendEvent(w, flusher, v) }

	send(map[string]any{
		"status":  "extracting",
		"message": "Checking " + sourceType,
		"total":   len(tracks),
	})

	results := make([]models.CheckedTrack, 0, len(tracks))
	for i, t := range tracks {
		select {
		case <-ctx.Done():
			log.Println("Client disconnected")
			return
		default:
		}

		res := chk.CheckTrack(ctx, t)
		results = append(results, res)

		send(map[string]any{
			"status": "processing",
			"index":  i + 1,
			"total":  len(tracks),
			"result": res,
		})
	}

	send(map[string]any{
		"status": "complete",
		"report": models.Report{
			SourceName: sourceName,
			SourceType: sourceType,
			Timestamp:  time.Now().Format(time.RFC3339),
			Tracks:     results,
		},
	})
}

func (a *app) handleCheckURL(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var (
		tracks     []models.Track
		sourceName string
		sourceType string
		err        error
	)

	cat, catErr := a.catalogFor(r)

	// ---------- CSV (multipart) ----------
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		tracks, sourceName, err = parser.ParseCSV(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "CSV parse failed: "+err.Error())
			return
		}
		sourceType = "csv"
	} else {
		// ---------- Spotify / YouTube URL ----------
		rawURL := r.URL.Query().Get("url")
		parsedURL, uerr := url.Parse(rawURL)
		if rawURL == "" || uerr != nil || parsedURL.Host == "" {
			jsonError(w, http.StatusBadRequest, "invalid URL")
			return
		}

		switch {
		case strings.Contains(parsedURL.Host, "spotify.com"):
			if catErr != nil {
				jsonError(w, http.StatusServiceUnavailable, catErr.Error())
				return
			}
			tracks, sourceName, err = cat.Resolve(r.Context(), rawURL)
			sourceType = "spotify"

		case strings.Contains(parsedURL.Host, "youtube.com"), strings.Contains(parsedURL.Host, "youtu.be"):
			tracks, sourceName, err = parser.ParseYouTube(rawURL)
			sourceType = "youtube"

		default:
			jsonError(w, http.StatusBadRequest, "unsupported source URL")
			return
		}

		if err != nil {
			jsonError(w, http.StatusInternalServerError, "extraction failed: "+err.Error())
			return
		}
	}

	if len(tracks) == 0 {
		jsonError(w, http.StatusBadRequest, "no tracks found")
		return
	}

	// YouTube and CSV tracks carry their own metadata, so the checker can
	// run without a catalog when credentials are missing.
	var albums checker.AlbumSource
	if catErr == nil {
		albums = cat
	}
	a.streamChecks(w, r, checker.New(albums, a.cls), tracks, sourceName, sourceType)
}

func (a *app) handleCheckPlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID := r.URL.Query().Get("playlist_id")
	if playlistID == "" {
		jsonError(w, http.StatusBadRequest, "no playlist_id provided")
		return
	}

	cat, err := a.catalogFor(r)
	if err != nil {
		jsonError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	tracks, name, err := cat.PlaylistTracks(r.Context(), spotify.ID(playlistID))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "could not fetch playlist: "+err.Error())
		return
	}

	// Optional 1-based range selection
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	end, _ := strconv.Atoi(r.URL.Query().Get("end"))
	if start < 1 {
		start = 1
	}
	if end > 0 || start > 1 {
		var ranged []models.Track
		for i, t := range tracks {
			idx := i + 1
			if idx < start || (end > 0 && idx > end) {
				continue
			}
			ranged = append(ranged, t)
		}
		tracks = ranged
		last := end
		if last == 0 {
			last = start + len(tracks) - 1
		}
		name = fmt.Sprintf("%s (range: %d-%d)", name, start, last)
	}

	if len(tracks) == 0 {
		jsonError(w, http.StatusBadRequest, "no tracks in selected range")
		return
	}

	a.streamChecks(w, r, checker.New(cat, a.cls), tracks, name, "spotify")
}

/* =========================
   Library / Search Handlers
   ========================= */

func (a *app) handleSavedTracks(w http.ResponseWriter, r *http.Request) {
	cat, ok := a.sessions.Client(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "login required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	tracks, err := cat.SavedTracks(r.Context(), limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := checker.New(cat, a.cls).CheckAll(r.Context(), tracks, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"title":  "Your Saved Tracks",
		"tracks": results,
	})
}

func (a *app) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		jsonError(w, http.StatusBadRequest, "no query provided")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cat, err := a.catalogFor(r)
	if err != nil {
		jsonError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	tracks, err := cat.Search(r.Context(), query, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := checker.New(cat, a.cls).CheckAll(r.Context(), tracks, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"title":  fmt.Sprintf("Search results for %q", query),
		"tracks": results,
	})
}

func (a *app) handleMyPlaylists(w http.ResponseWriter, r *http.Request) {
	cat, ok := a.sessions.Client(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "login required")
		return
	}

	playlists, err := cat.UserPlaylists(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (a *app) handleTrackDetails(w http.ResponseWriter, r *http.Request) {
	trackID := r.URL.Query().Get("track_id")
	if trackID == "" {
		jsonError(w, http.StatusBadRequest, "no track_id provided")
		return
	}

	cat, err := a.catalogFor(r)
	if err != nil {
		jsonError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	track, err := cat.Track(r.Context(), spotify.ID(trackID))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "could not fetch track: "+err.Error())
		return
	}

	checked := checker.New(cat, a.cls).CheckTrack(r.Context(), track)

	var album *models.AlbumInfo
	if track.AlbumID != "" {
		album, _ = cat.AlbumDetails(r.Context(), track.AlbumID)
	}

	features := map[string]any{"has_data": false}
	if af, err := cat.AudioFeatures(r.Context(), spotify.ID(trackID)); err == nil && af != nil {
		features = map[string]any{
			"has_data":     true,
			"tempo":        af.Tempo,
			"key":          af.Key,
			"mode":         af.Mode,
			"danceability": af.Danceability,
			"energy":       af.Energy,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"track":          checked,
		"album":          album,
		"audio_features": features,
	})
}

/* =========================
   Bookmark Handlers
   ========================= */

func (a *app) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bookmarks, err := database.ListBookmarks(a.db)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if bookmarks == nil {
			bookmarks = []models.Bookmark{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookmarks": bookmarks})

	case http.MethodPost:
		var b models.Bookmark
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := database.UpsertBookmark(a.db, b); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	case http.MethodDelete:
		removed, err := database.DeleteBookmark(a.db, r.URL.Query().Get("track_id"))
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

/* =========================
   Playlist Mutation Handlers
   ========================= */

func (a *app) handleAddPlaylistItems(w http.ResponseWriter, r *http.Request) {
	cat, ok := a.sessions.Client(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "login required")
		return
	}

	var req struct {
		PlaylistID string `json:"playlist_id"`
		TrackID    string `json:"track_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlaylistID == "" || req.TrackID == "" {
		jsonError(w, http.StatusBadRequest, "playlist_id and track_id are required")
		return
	}

	snapshot, err := cat.AddToPlaylist(r.Context(), spotify.ID(req.PlaylistID), spotify.ID(req.TrackID))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"snapshot_id": snapshot})
}

func (a *app) handleRemovePlaylistItems(w http.ResponseWriter, r *http.Request) {
	cat, ok := a.sessions.Client(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "login required")
		return
	}

	playlistID := r.URL.Query().Get("playlist_id")
	trackID := r.URL.Query().Get("track_id")
	if playlistID == "" || trackID == "" {
		jsonError(w, http.StatusBadRequest, "playlist_id and track_id are required")
		return
	}

	snapshot, err := cat.RemoveFromPlaylist(r.Context(), spotify.ID(playlistID), spotify.ID(trackID))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"snapshot_id": snapshot})
}

/* =========================
   Main
   ========================= */

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	store := config.NewStore(".", os.Getenv("SETUP_TOTP_SECRET"))
	if _, _, ok := store.Credentials(); !ok {
		log.Println("WARNING: no Spotify credentials yet; configure via POST /api/v1/setup or SPOTIFY_ID/SPOTIFY_SECRET")
	}

	// Database Setup
	dbPath := "./data/registry.db"
	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if err := database.InitDatabase(db); err != nil {
		log.Fatalf("Failed to init DB schema: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	redirectURI := os.Getenv("REDIRECT_URI")
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:" + port + "/callback"
	}

	a := &app{
		db:          db,
		store:       store,
		sessions:    webauth.NewSessionStore(),
		cls:         license.Default(),
		mb:          catalog.NewMusicBrainzClient(),
		redirectURI: redirectURI,
		states:      make(map[string]*spotifyauth.Authenticator),
	}

	// Routing
	handle := func(pattern string, methods string, h http.HandlerFunc) {
		http.HandleFunc(pattern, RecoveryMiddleware(func(w http.ResponseWriter, r *http.Request) {
			if methods != "" && !strings.Contains(methods, r.Method) {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}))
	}

	handle("/login", http.MethodGet, a.handleLogin)
	handle("/callback", http.MethodGet, a.handleCallback)
	handle("/logout", http.MethodGet, a.handleLogout)

	handle("/api/v1/setup", http.MethodPost, a.handleSetup)
	handle("/api/v1/check-url", "", a.handleCheckURL) // GET, POST (csv), OPTIONS
	handle("/api/v1/check-playlist", http.MethodGet, a.handleCheckPlaylist)
	handle("/api/v1/saved-tracks", http.MethodGet, a.handleSavedTracks)
	handle("/api/v1/search", http.MethodGet, a.handleSearch)
	handle("/api/v1/my-playlists", http.MethodGet, a.handleMyPlaylists)
	handle("/api/v1/track-details", http.MethodGet, a.handleTrackDetails)
	handle("/api/v1/bookmarks", "", a.handleBookmarks) // GET, POST, DELETE
	handle("/api/v1/add-playlist-items", http.MethodPost, a.handleAddPlaylistItems)
	handle("/api/v1/delete-playlist-items", http.MethodDelete, a.handleRemovePlaylistItems)

	handle("/", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		_, authenticated := a.sessions.Client(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"service":       "copycheck",
			"authenticated": authenticated,
		})
	})

	log.Printf("Copyright checker listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
