package models

import "copycheck-go-srv/internal/license"

// Track is one piece of recorded music pulled from a source. Spotify tracks
// carry an AlbumID and get their label/copyright metadata resolved at check
// time; YouTube and CSV tracks carry their own metadata inline.
type Track struct {
	SourceID    string `json:"source_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	AlbumID     string `json:"album_id,omitempty"`
	Label       string `json:"label,omitempty"`
	Copyright   string `json:"copyright,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Copyright is one copyright notice attached to an album.
type Copyright struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// AlbumInfo is the album metadata the checker needs for classification.
type AlbumInfo struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	ReleaseDate string      `json:"release_date"`
	Copyrights  []Copyright `json:"copyrights"`
}

// CheckedTrack is a track together with its license verdict.
type CheckedTrack struct {
	Track
	License    license.Verdict `json:"license"`
	Copyrights []Copyright     `json:"copyrights"`
}

// Report is the final payload of one check run.
type Report struct {
	SourceName string         `json:"source_name"`
	SourceType string         `json:"source_type"`
	Timestamp  string         `json:"timestamp"`
	Tracks     []CheckedTrack `json:"tracks"`
}

// Bookmark is a user-saved track snapshot in the registry.
type Bookmark struct {
	TrackID     string  `json:"track_id"`
	Name        string  `json:"name"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	ReleaseDate string  `json:"release_date"`
	Publisher   string  `json:"publisher"`
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
	Copyright   string  `json:"copyright"`
	CreatedAt   string  `json:"created_at"`
}
