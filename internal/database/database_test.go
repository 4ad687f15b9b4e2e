package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"copycheck-go-srv/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := InitDatabase(db); err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	return db
}

func TestBookmarkRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	b := models.Bookmark{
		TrackID:     "spotify:track:abc",
		Name:        "Song",
		Artist:      "Artist",
		Album:       "Album",
		ReleaseDate: "2021-03-01",
		Publisher:   "NCS",
		Status:      "free",
		Confidence:  0.95,
		Reason:      "Known free-music label: ncs.",
	}
	if err := UpsertBookmark(db, b); err != nil {
		t.Fatalf("UpsertBookmark: %v", err)
	}

	got, err := ListBookmarks(db)
	if err != nil {
		t.Fatalf("ListBookmarks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d bookmarks, want 1", len(got))
	}
	if got[0].TrackID != b.TrackID || got[0].Status != "free" || got[0].Confidence != 0.95 {
		t.Errorf("bookmark = %+v", got[0])
	}
	if got[0].CreatedAt == "" {
		t.Error("CreatedAt not populated")
	}
}

func TestUpsertBookmarkRefreshesSnapshot(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	first := models.Bookmark{TrackID: "t1", Name: "Song", Status: "unsure", Confidence: 0.4}
	if err := UpsertBookmark(db, first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.Status = "copyrighted"
	second.Confidence = 0.9
	if err := UpsertBookmark(db, second); err != nil {
		t.Fatal(err)
	}

	got, err := ListBookmarks(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d bookmarks, want 1 after re-save", len(got))
	}
	if got[0].Status != "copyrighted" || got[0].Confidence != 0.9 {
		t.Errorf("snapshot not refreshed: %+v", got[0])
	}
}

func TestUpsertBookmarkRequiresTrackID(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	if err := UpsertBookmark(db, models.Bookmark{Name: "no id"}); err == nil {
		t.Fatal("want error for missing track id")
	}
}

func TestDeleteBookmark(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	if err := UpsertBookmark(db, models.Bookmark{TrackID: "t1", Name: "Song"}); err != nil {
		t.Fatal(err)
	}

	removed, err := DeleteBookmark(db, "t1")
	if err != nil {
		t.Fatalf("DeleteBookmark: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}

	removed, err = DeleteBookmark(db, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("second delete removed = true, want false")
	}
}
