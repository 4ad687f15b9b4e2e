package parser

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"

	"copycheck-go-srv/internal/models"
)

// canonical header mapping
var headerAliases = map[string]string{
	"title":       "title",
	"track":       "title",
	"track_title": "title",
	"name":        "title",

	"artist":      "artist",
	"artist_name": "artist",
	"performer":   "artist",

	"album":       "album",
	"album_title": "album",

	"label":        "label",
	"publisher":    "label",
	"record_label": "label",

	"copyright":      "copyright",
	"copyright_text": "copyright",
	"notice":         "copyright",

	"release_date": "release_date",
	"released":     "release_date",
	"year":         "release_date",
	"date":         "release_date",
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseCSV reads a multipart metadata export. Rows carry their own label and
// copyright text, so tracks from this source never need a catalog round-trip.
func ParseCSV(r *http.Request) ([]models.Track, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rawHeaders, err := reader.Read()
	if err != nil {
		return nil, "", err
	}

	columnMap := make(map[int]string)
	for i, h := range rawHeaders {
		if canonical, ok := headerAliases[normalize(h)]; ok {
			columnMap[i] = canonical
		}
	}
	if len(columnMap) == 0 {
		return nil, "", errors.New("no recognized columns in CSV header")
	}

	var tracks []models.Track
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}

		fields := make(map[string]string)
		for i, value := range record {
			if canonical, ok := columnMap[i]; ok && strings.TrimSpace(value) != "" {
				fields[canonical] = strings.TrimSpace(value)
			}
		}
		if fields["title"] == "" {
			continue
		}

		tracks = append(tracks, models.Track{
			Type:        "csv",
			Name:        fields["title"],
			Artist:      fields["artist"],
			Album:       fields["album"],
			Label:       fields["label"],
			Copyright:   fields["copyright"],
			ReleaseDate: fields["release_date"],
		})
	}

	return tracks, header.Filename, nil
}
