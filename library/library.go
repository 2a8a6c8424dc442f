// Package library holds the persistent music library model: songs, the
// derived director/movie tree, and the merge rules that protect enriched
// metadata from being clobbered by rescans or low trust remote data.
package library

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"go.senan.xyz/muse/norm"
)

// Source classifies where a song's current metadata came from.
type Source string

const (
	SourceLocal    Source = "LOCAL"
	SourceInternet Source = "INTERNET"
	SourceManual   Source = "MANUAL"
)

// Song is one audio asset on the device. The zero value of every enrichment
// field means "not enriched yet".
type Song struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Artist           string  `json:"artist"`
	Composer         string  `json:"composer"`
	Album            string  `json:"album"`
	DurationMS       int     `json:"duration"`
	URI              string  `json:"uri"`
	Filename         string  `json:"filename"`
	Size             int64   `json:"size"`
	ModificationTime int64   `json:"modificationTime"`
	Year             int     `json:"year,omitempty"`
	IsEnhanced       bool    `json:"isEnhanced"`
	ConfidenceScore  float64 `json:"confidenceScore"`
	MetadataSource   Source  `json:"metadataSource,omitempty"`
	CoverURI         string  `json:"coverUri,omitempty"`
	ArtworkURI       string  `json:"artworkUri,omitempty"`
	Lyrics           string  `json:"lyrics,omitempty"`
}

// NewID derives a song's stable identity from its URI and the platform asset
// id. It must not change between scans of the same physical file.
func NewID(uri, assetID string) string {
	sum := sha1.Sum(fmt.Appendf(nil, "%s|%s", uri, assetID))
	return hex.EncodeToString(sum[:])[:16]
}

// HasRealTitle reports whether the title looks user visible rather than a
// scanner placeholder, which gates whether remote search is worth attempting.
func (s Song) HasRealTitle() bool {
	return !isPlaceholder(s.Title)
}

func isPlaceholder(v string) bool {
	switch norm.Normalize(v) {
	case "", "unknown", "unknown artist", "unknown album":
		return true
	}
	return false
}

// Movie is an album level grouping, one level below a director.
type Movie struct {
	Name         string `json:"name"`
	DisplayTitle string `json:"displayTitle"`
	Songs        []Song `json:"songs"`
	Year         int    `json:"year,omitempty"`
	ArtworkURI   string `json:"artworkUri,omitempty"`
}

// MusicDirector is the composer level grouping at the top of the hierarchy.
type MusicDirector struct {
	Name         string  `json:"name"`
	DisplayTitle string  `json:"displayTitle"`
	Movies       []Movie `json:"movies"`
	PhotoURI     string  `json:"photoUri,omitempty"`
}

// Snapshot is the persisted whole library state.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Songs     []Song          `json:"songs"`
	Directors []MusicDirector `json:"directors"`
}

// MetadataResult is an untrusted candidate record from a metadata source.
// It is never persisted, only selectively applied to a Song.
type MetadataResult struct {
	Title      string
	Artist     string
	Album      string
	Composer   string
	DurationMS int
	Year       int
	SourceName string
	Score      float64
	ArtworkURI string
	Lyrics     string

	// Trust classifies which merge policy column applies.
	Trust Source
}
