package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const mbDefaultBase = "https://musicbrainz.org/ws/2"

// MusicBrainzClient looks up release labels when Spotify metadata carries
// none. Rate limited to 1 req/s per MusicBrainz guidelines.
type MusicBrainzClient struct {
	// BaseURL is overridable for tests.
	BaseURL string

	http    *http.Client
	limiter *rate.Limiter
}

func NewMusicBrainzClient() *MusicBrainzClient {
	return &MusicBrainzClient{
		BaseURL: mbDefaultBase,
		http:    &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// mbReleaseResponse is simplified for label extraction.
type mbReleaseResponse struct {
	Releases []struct {
		Score     int `json:"score"`
		LabelInfo []struct {
			Label struct {
				Name string `json:"name"`
			} `json:"label"`
		} `json:"label-info"`
	} `json:"releases"`
}

// ReleaseLabel returns the label name of the best-scoring release matching
// artist and album, or "" when nothing trustworthy is found. Lookup failures
// degrade to "" so a missing label never fails a check.
func (m *MusicBrainzClient) ReleaseLabel(ctx context.Context, artist, album string) string {
	if album == "" {
		return ""
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return ""
	}

	// Lucene query syntax
	query := fmt.Sprintf("artist:%q AND release:%q", artist, album)
	searchURL := fmt.Sprintf("%s/release?query=%s&fmt=json", m.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return ""
	}
	// MusicBrainz requires a descriptive User-Agent
	req.Header.Set("User-Agent", "copycheck-go-srv/1.0 (https://github.com/copycheck/copycheck-go-srv)")

	resp, err := m.http.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			resp.Body.Close()
		}
		return ""
	}
	defer resp.Body.Close()

	var res mbReleaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return ""
	}

	for _, rel := range res.Releases {
		if rel.Score > 80 && len(rel.LabelInfo) > 0 && rel.LabelInfo[0].Label.Name != "" {
			return rel.LabelInfo[0].Label.Name
		}
	}
	return ""
}
