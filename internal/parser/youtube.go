// Package parser turns non-Spotify sources (YouTube URLs, CSV uploads) into
// track bundles for the checker.
package parser

import (
	"fmt"

	"github.com/kkdai/youtube/v2"

	"copycheck-go-srv/internal/models"
)

// ParseYouTube lists the tracks behind a YouTube URL. Playlists are tried
// first, then single videos. For single videos the description is kept as
// free text for the classifier, since creators state licensing there
// ("No Copyright Music", "free to use", label notices).
func ParseYouTube(url string) ([]models.Track, string, error) {
	client := youtube.Client{}

	playlist, err := client.GetPlaylist(url)
	if err == nil {
		var tracks []models.Track
		for _, entry := range playlist.Videos {
			artist, title := SplitVideoTitle(entry.Title, entry.Author)
			tracks = append(tracks, models.Track{
				SourceID: entry.ID,
				Type:     "youtube",
				Name:     title,
				Artist:   artist,
			})
		}
		return tracks, playlist.Title, nil
	}

	video, err := client.GetVideo(url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse YouTube URL: %w", err)
	}

	artist, title := SplitVideoTitle(video.Title, video.Author)
	tracks := []models.Track{
		{
			SourceID: video.ID,
			Type:     "youtube",
			Name:     title,
			Artist:   artist,
			Notes:    video.Description,
		},
	}

	return tracks, video.Title, nil
}
