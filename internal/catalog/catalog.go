// Package catalog talks to the music catalogs the checker pulls metadata
// from: the Spotify Web API for tracks, albums and playlists, with a
// MusicBrainz fallback for missing label strings.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"copycheck-go-srv/internal/models"
)

const spotifyAPIBase = "https://api.spotify.com/v1"

var errEmptyAlbumID = errors.New("empty album id")

// Client wraps an authenticated Spotify client. The raw *http.Client carries
// the same OAuth transport and is used for the album-details endpoint, whose
// label field the typed client does not surface.
type Client struct {
	sp      *spotify.Client
	http    *http.Client
	limiter *rate.Limiter
	mb      *MusicBrainzClient

	mu     sync.Mutex
	albums map[string]*models.AlbumInfo
}

// New builds a catalog client. mb may be nil to disable the label fallback.
func New(sp *spotify.Client, httpClient *http.Client, mb *MusicBrainzClient) *Client {
	return &Client{
		sp:      sp,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		mb:      mb,
		albums:  make(map[string]*models.AlbumInfo),
	}
}

// ParseSpotifyURL extracts the media type and ID from an open.spotify.com URL.
func ParseSpotifyURL(rawURL string) (spotify.ID, string, error) {
	var kind string
	switch {
	case strings.Contains(rawURL, "/playlist/"):
		kind = "playlist"
	case strings.Contains(rawURL, "/album/"):
		kind = "album"
	case strings.Contains(rawURL, "/track/"):
		kind = "track"
	default:
		return "", "", fmt.Errorf("could not identify media type from URL")
	}

	parts := strings.Split(rawURL, "/")
	last := parts[len(parts)-1]
	id := strings.Split(last, "?")[0]
	if id == "" {
		return "", "", fmt.Errorf("could not extract %s id from URL", kind)
	}
	return spotify.ID(id), kind, nil
}

// Resolve lists the tracks behind a Spotify URL along with a display name
// for the source.
func (c *Client) Resolve(ctx context.Context, rawURL string) ([]models.Track, string, error) {
	id, kind, err := ParseSpotifyURL(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("spotify parse url: %w", err)
	}

	switch kind {
	case "playlist":
		return c.PlaylistTracks(ctx, id)
	case "album":
		return c.albumTracks(ctx, id)
	default:
		t, err := c.Track(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return []models.Track{t}, t.Name, nil
	}
}

// Track fetches a single track.
func (c *Client) Track(ctx context.Context, id spotify.ID) (models.Track, error) {
	res, err := c.sp.GetTrack(ctx, id)
	if err != nil {
		return models.Track{}, fmt.Errorf("get track: %w", err)
	}
	return transform(*res), nil
}

// PlaylistTracks pages through a playlist, skipping local files.
func (c *Client) PlaylistTracks(ctx context.Context, id spotify.ID) ([]models.Track, string, error) {
	res, err := c.sp.GetPlaylist(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get playlist: %w", err)
	}

	var tracks []models.Track
	page := res.Tracks
	for {
		for _, item := range page.Tracks {
			if item.Track.ID != "" && !item.IsLocal {
				tracks = append(tracks, transform(item.Track))
			}
		}

		err = c.sp.NextPage(ctx, &page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return tracks, res.Name, fmt.Errorf("playlist pagination: %w", err)
		}
	}

	return tracks, res.Name, nil
}

// albumTracks lists an album's tracks. The album endpoint returns simplified
// tracks, so full tracks are re-fetched in batches of 50.
func (c *Client) albumTracks(ctx context.Context, id spotify.ID) ([]models.Track, string, error) {
	res, err := c.sp.GetAlbum(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get album: %w", err)
	}

	var ids []spotify.ID
	for _, t := range res.Tracks.Tracks {
		ids = append(ids, t.ID)
	}

	var tracks []models.Track
	for i := 0; i < len(ids); i += 50 {
		end := i + 50
		if end > len(ids) {
			end = len(ids)
		}

		full, err := c.sp.GetTracks(ctx, ids[i:end])
		if err != nil {
			return nil, "", fmt.Errorf("get full tracks for album: %w", err)
		}
		for _, ft := range full {
			tracks = append(tracks, transform(*ft))
		}
	}

	return tracks, res.Name, nil
}

// albumPayload mirrors the fields of GET /v1/albums/{id} the checker needs.
type albumPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	ReleaseDate string `json:"release_date"`
	Artists     []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Copyrights []models.Copyright `json:"copyrights"`
}

// AlbumDetails fetches label, release date, and copyright notices for an
// album, memoized per client instance. When Spotify returns no label, the
// MusicBrainz fallback is consulted.
func (c *Client) AlbumDetails(ctx context.Context, id string) (*models.AlbumInfo, error) {
	if id == "" {
		return nil, errEmptyAlbumID
	}

	c.mu.Lock()
	if a, ok := c.albums[id]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		spotifyAPIBase+"/albums/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("album details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("album details %s: status %d", id, resp.StatusCode)
	}

	var payload albumPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("album details decode: %w", err)
	}

	info := &models.AlbumInfo{
		ID:          payload.ID,
		Name:        payload.Name,
		Label:       payload.Label,
		ReleaseDate: payload.ReleaseDate,
		Copyrights:  payload.Copyrights,
	}

	if info.Label == "" && c.mb != nil {
		artist := ""
		if len(payload.Artists) > 0 {
			artist = payload.Artists[0].Name
		}
		info.Label = c.mb.ReleaseLabel(ctx, artist, payload.Name)
	}

	c.mu.Lock()
	c.albums[id] = info
	c.mu.Unlock()
	return info, nil
}

// SavedTracks lists up to limit of the user's saved tracks.
func (c *Client) SavedTracks(ctx context.Context, limit int) ([]models.Track, error) {
	res, err := c.sp.CurrentUsersTracks(ctx, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("saved tracks: %w", err)
	}

	tracks := make([]models.Track, 0, len(res.Tracks))
	for _, item := range res.Tracks {
		tracks = append(tracks, transform(item.FullTrack))
	}
	return tracks, nil
}

// PlaylistSummary is one entry of a playlist listing.
type PlaylistSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tracks uint   `json:"tracks"`
	Owner  string `json:"owner"`
}

// UserPlaylists pages through every playlist of the current user.
func (c *Client) UserPlaylists(ctx context.Context) ([]PlaylistSummary, error) {
	res, err := c.sp.CurrentUsersPlaylists(ctx, spotify.Limit(50))
	if err != nil {
		return nil, fmt.Errorf("user playlists: %w", err)
	}

	var playlists []PlaylistSummary
	for {
		for _, p := range res.Playlists {
			playlists = append(playlists, PlaylistSummary{
				ID:     string(p.ID),
				Name:   p.Name,
				Tracks: uint(p.Tracks.Total),
				Owner:  p.Owner.DisplayName,
			})
		}

		err = c.sp.NextPage(ctx, res)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return playlists, fmt.Errorf("playlist pagination: %w", err)
		}
	}

	return playlists, nil
}

// Search finds tracks matching query, best matches first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	res, err := c.sp.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if res.Tracks == nil {
		return nil, nil
	}

	tracks := make([]models.Track, 0, len(res.Tracks.Tracks))
	for _, ft := range res.Tracks.Tracks {
		tracks = append(tracks, transform(ft))
	}
	rankBySimilarity(query, tracks)
	return tracks, nil
}

// AddToPlaylist appends a track to a playlist and returns the snapshot ID.
func (c *Client) AddToPlaylist(ctx context.Context, playlistID, trackID spotify.ID) (string, error) {
	snapshot, err := c.sp.AddTracksToPlaylist(ctx, playlistID, trackID)
	if err != nil {
		return "", fmt.Errorf("add to playlist: %w", err)
	}
	return snapshot, nil
}

// RemoveFromPlaylist removes a track from a playlist and returns the
// snapshot ID.
func (c *Client) RemoveFromPlaylist(ctx context.Context, playlistID, trackID spotify.ID) (string, error) {
	snapshot, err := c.sp.RemoveTracksFromPlaylist(ctx, playlistID, trackID)
	if err != nil {
		return "", fmt.Errorf("remove from playlist: %w", err)
	}
	return snapshot, nil
}

// AudioFeatures fetches the audio analysis summary for one track, or nil if
// Spotify has none.
func (c *Client) AudioFeatures(ctx context.Context, id spotify.ID) (*spotify.AudioFeatures, error) {
	feats, err := c.sp.GetAudioFeatures(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("audio features: %w", err)
	}
	if len(feats) == 0 || feats[0] == nil {
		return nil, nil
	}
	return feats[0], nil
}

// rankBySimilarity orders tracks by Jaro-Winkler similarity of
// "artist title" to the query, best first. Stable, so Spotify's own
// relevance order breaks ties.
func rankBySimilarity(query string, tracks []models.Track) {
	if len(tracks) < 2 {
		return
	}
	q := strings.ToLower(query)
	jw := metrics.NewJaroWinkler()
	scores := make([]float64, len(tracks))
	for i, t := range tracks {
		scores[i] = strutil.Similarity(q, strings.ToLower(t.Artist+" "+t.Name), jw)
	}
	idx := make([]int, len(tracks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})
	ranked := make([]models.Track, len(tracks))
	for i, k := range idx {
		ranked[i] = tracks[k]
	}
	copy(tracks, ranked)
}

func transform(st spotify.FullTrack) models.Track {
	artists := make([]string, len(st.Artists))
	for i, a := range st.Artists {
		artists[i] = a.Name
	}

	return models.Track{
		SourceID:    string(st.ID),
		Type:        "spotify",
		Name:        st.Name,
		Artist:      strings.Join(artists, ", "),
		Album:       st.Album.Name,
		AlbumID:     string(st.Album.ID),
		ReleaseDate: st.Album.ReleaseDate,
	}
}
