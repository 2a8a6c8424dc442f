// Package score rates how well a remote metadata candidate matches a locally
// scanned song. Every candidate is scored independently and callers keep the
// best match across all sources, not the first acceptable one.
package score

import (
	"go.senan.xyz/muse/norm"
)

// Component weights. They sum to 1 so the total stays in [0, 1].
const (
	WeightTitle    = 0.40
	WeightDuration = 0.30
	WeightAlbum    = 0.20
	WeightArtist   = 0.10
)

// MatchThreshold is the minimum total score for a candidate to be accepted.
const MatchThreshold = 0.85

const (
	// durations this close are considered exact
	durationGraceMS = 2000
	// beyond this difference the duration component floors at 0
	durationFloorMS = 10000
)

// Track is the minimal comparable view of a song or candidate.
type Track struct {
	Title      string
	Artist     string
	Album      string
	DurationMS int
}

type Breakdown struct {
	Title    float64
	Duration float64
	Album    float64
	Artist   float64
}

type Result struct {
	IsMatch   bool
	Total     float64
	Breakdown Breakdown
}

// Verify scores remote against local and reports the weighted total along
// with the per component breakdown.
func Verify(local, remote Track) Result {
	var b Breakdown
	b.Title = norm.Similarity(local.Title, remote.Title)
	b.Album = norm.Similarity(local.Album, remote.Album)
	b.Artist = norm.Similarity(local.Artist, remote.Artist)
	b.Duration = durationScore(local.DurationMS, remote.DurationMS)

	total := b.Title*WeightTitle +
		b.Duration*WeightDuration +
		b.Album*WeightAlbum +
		b.Artist*WeightArtist

	return Result{
		IsMatch:   total >= MatchThreshold,
		Total:     total,
		Breakdown: b,
	}
}

func durationScore(localMS, remoteMS int) float64 {
	diff := localMS - remoteMS
	if diff < 0 {
		diff = -diff
	}
	if diff <= durationGraceMS {
		return 1
	}
	s := 1 - float64(diff)/durationFloorMS
	if s < 0 {
		return 0
	}
	return s
}
