package parser

import (
	"regexp"
	"strings"
)

var (
	// Noise reduction regex
	noiseRegex = regexp.MustCompile(`(?i)\((official video|official audio|audio|video|lyrics|visualizer|HD|Remaster(ed)?)\)|\[(official video|official audio|audio|video|lyrics|visualizer|HD|Remaster(ed)?)\]`)
	featRegex  = regexp.MustCompile(`(?i)\bfeat\.?\b`)
	spaceRegex = regexp.MustCompile(`\s{2,}`)
	splitRegex = regexp.MustCompile(`\s+[-|–—|:]\s+`)
)

// SplitVideoTitle extracts (artist, title) from a raw video title, falling
// back to the uploader as artist when the title has no "Artist - Title"
// structure.
func SplitVideoTitle(rawTitle, uploader string) (string, string) {
	t := rawTitle

	t = noiseRegex.ReplaceAllString(t, "")
	t = featRegex.ReplaceAllString(t, "ft.")
	t = spaceRegex.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)

	parts := splitRegex.Split(t, 2)
	if len(parts) == 2 {
		left, right := parts[0], parts[1]
		if looksLikeArtist(left, right) {
			return capWords(left), capWords(right)
		}
		return capWords(right), capWords(left)
	}

	if uploader != "" {
		return capWords(uploader), capWords(t)
	}

	return "", capWords(t)
}

// looksLikeArtist: the left side smells like an artist list when it carries
// commas/featuring credits, or is short while the right side is longer.
func looksLikeArtist(left, right string) bool {
	leftLower := strings.ToLower(left)
	if strings.Contains(left, ",") || strings.Contains(leftLower, "ft.") || strings.Contains(leftLower, "feat.") {
		return true
	}

	leftWords := len(strings.Fields(left))
	rightWords := len(strings.Fields(right))

	return leftWords <= 4 && rightWords >= 2
}

// capWords title-cases each word, preserving short all-caps tokens
// (DJ, NCS, MGMT).
func capWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == strings.ToUpper(w) && len(w) <= 4 {
			continue
		}
		words[i] = capitalize(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
