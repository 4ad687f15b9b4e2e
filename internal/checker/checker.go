// Package checker runs the per-track pipeline: resolve the album metadata a
// track needs, feed the text bundle to the license classifier, and attach
// the verdict.
package checker

import (
	"context"

	"copycheck-go-srv/internal/license"
	"copycheck-go-srv/internal/models"
)

// AlbumSource resolves album metadata for Spotify tracks. Implemented by
// catalog.Client; tests substitute a stub.
type AlbumSource interface {
	AlbumDetails(ctx context.Context, id string) (*models.AlbumInfo, error)
}

type Checker struct {
	albums AlbumSource
	cls    *license.Classifier
}

func New(albums AlbumSource, cls *license.Classifier) *Checker {
	return &Checker{albums: albums, cls: cls}
}

// CheckTrack classifies one track. Spotify tracks get their label, release
// date, and copyright notices from the album source; YouTube and CSV tracks
// carry their own. Album lookup failures degrade to track-only metadata;
// a check never fails, it just loses signals.
func (c *Checker) CheckTrack(ctx context.Context, t models.Track) models.CheckedTrack {
	label := t.Label
	releaseDate := t.ReleaseDate
	var copyrights []models.Copyright

	if t.Type == "spotify" && t.AlbumID != "" && c.albums != nil {
		if album, err := c.albums.AlbumDetails(ctx, t.AlbumID); err == nil && album != nil {
			label = album.Label
			copyrights = album.Copyrights
			if album.ReleaseDate != "" {
				releaseDate = album.ReleaseDate
			}
		}
	}

	texts := []string{t.Name, t.Artist, t.Copyright, t.Notes}
	for _, cr := range copyrights {
		texts = append(texts, cr.Text)
	}

	verdict := c.cls.Classify(license.Input{
		Texts:       texts,
		Label:       label,
		ReleaseDate: releaseDate,
	})

	return models.CheckedTrack{
		Track:      t,
		License:    verdict,
		Copyrights: copyrights,
	}
}

// CheckAll classifies a batch, invoking onProgress (when non-nil) after each
// track with 1-based progress.
func (c *Checker) CheckAll(ctx context.Context, tracks []models.Track, onProgress func(index, total int, res *models.CheckedTrack)) []models.CheckedTrack {
	results := make([]models.CheckedTrack, 0, len(tracks))
	for i, t := range tracks {
		res := c.CheckTrack(ctx, t)
		results = append(results, res)
		if onProgress != nil {
			onProgress(i+1, len(tracks), &res)
		}
	}
	return results
}
