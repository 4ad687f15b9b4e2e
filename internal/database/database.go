// Package database holds the sqlite bookmark registry: tracks the user
// explicitly saved from the dashboard, with the metadata snapshot they saw.
package database

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"copycheck-go-srv/internal/models"
)

//go:embed schema.sql
var schema string

// InitDatabase runs the embedded schema and sets performance PRAGMAs
func InitDatabase(db *sql.DB) error {
	// WAL mode keeps bookmark writes from blocking concurrent SSE scans
	_, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA cache_size=-2000;")
	if err != nil {
		return err
	}
	_, err = db.Exec(schema)
	return err
}

// UpsertBookmark inserts or refreshes a saved track. Re-saving the same
// track updates the snapshot instead of erroring.
func UpsertBookmark(db *sql.DB, b models.Bookmark) error {
	if db == nil {
		return nil
	}
	if b.TrackID == "" {
		return fmt.Errorf("bookmark needs a track id")
	}

	query := `
	INSERT INTO bookmarks (track_id, name, artist, album, release_date, publisher, status, confidence, reason, copyright, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(track_id) DO UPDATE SET
		name = excluded.name,
		artist = excluded.artist,
		album = excluded.album,
		release_date = excluded.release_date,
		publisher = excluded.publisher,
		status = excluded.status,
		confidence = excluded.confidence,
		reason = excluded.reason,
		copyright = excluded.copyright;`

	_, err := db.Exec(query, b.TrackID, b.Name, b.Artist, b.Album, b.ReleaseDate,
		b.Publisher, b.Status, b.Confidence, b.Reason, b.Copyright)
	return err
}

// ListBookmarks returns saved tracks, newest first.
func ListBookmarks(db *sql.DB) ([]models.Bookmark, error) {
	if db == nil {
		return nil, fmt.Errorf("no database")
	}

	rows, err := db.Query(`
	SELECT track_id, name, artist, album, release_date, publisher, status, confidence, reason, copyright, created_at
	FROM bookmarks ORDER BY created_at DESC, track_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []models.Bookmark
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.TrackID, &b.Name, &b.Artist, &b.Album, &b.ReleaseDate,
			&b.Publisher, &b.Status, &b.Confidence, &b.Reason, &b.Copyright, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// DeleteBookmark removes a saved track. It reports whether anything was
// actually removed.
func DeleteBookmark(db *sql.DB, trackID string) (bool, error) {
	if db == nil || trackID == "" {
		return false, fmt.Errorf("invalid delete")
	}

	res, err := db.Exec("DELETE FROM bookmarks WHERE track_id = ?", trackID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
