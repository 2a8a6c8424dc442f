// Package fingerprint derives deterministic lookup keys for songs. A
// fingerprint is a cache key, never an identity: two distinct files may share
// one, and a file keeps its id even when its fingerprint changes.
package fingerprint

import (
	"fmt"
	"math"

	"go.senan.xyz/muse/norm"
)

type Fingerprint struct {
	Title         string
	DurationMS    int
	Artist        string
	FilenameClean string
}

// New builds the structured form, with all string components normalised.
func New(title, artist, filename string, durationMS int) Fingerprint {
	return Fingerprint{
		Title:         norm.Normalize(title),
		DurationMS:    durationMS,
		Artist:        norm.Normalize(artist),
		FilenameClean: norm.CleanFilename(filename),
	}
}

// Key renders the canonical "title|seconds|artist" key. A missing artist is
// keyed as "unknown" so that sparsely tagged files still bucket together.
func (f Fingerprint) Key() string {
	artist := f.Artist
	if artist == "" {
		artist = "unknown"
	}
	secs := int(math.Round(float64(f.DurationMS) / 1000))
	return fmt.Sprintf("%s|%d|%s", f.Title, secs, artist)
}

// Key is shorthand for New followed by [Fingerprint.Key].
func Key(title, artist string, durationMS int) string {
	return New(title, artist, "", durationMS).Key()
}
