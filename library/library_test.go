package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID("file:///music/a.mp3", "asset-1")
	assert.Len(t, id, 16)
	assert.Equal(t, id, NewID("file:///music/a.mp3", "asset-1"))
	assert.NotEqual(t, id, NewID("file:///music/b.mp3", "asset-1"))
	assert.NotEqual(t, id, NewID("file:///music/a.mp3", "asset-2"))
}

func TestHasRealTitle(t *testing.T) {
	assert.True(t, Song{Title: "Karma Police"}.HasRealTitle())
	assert.False(t, Song{Title: ""}.HasRealTitle())
	assert.False(t, Song{Title: "Unknown"}.HasRealTitle())
	assert.False(t, Song{Title: "  UNKNOWN  "}.HasRealTitle())
	assert.False(t, Song{Title: "Unknown Artist"}.HasRealTitle())
}

func TestApplyInternetFillsDefaultsOnly(t *testing.T) {
	s := Song{
		Title:  "Airbag",
		Artist: "Unknown Artist",
	}
	changed := Apply(&s, MetadataResult{
		Title:  "Airbag (Remastered)",
		Artist: "Radiohead",
		Album:  "OK Computer",
		Year:   1997,
		Score:  0.93,
		Trust:  SourceInternet,
	})

	require.True(t, changed)
	assert.Equal(t, "Airbag", s.Title, "real title survives")
	assert.Equal(t, "Radiohead", s.Artist, "placeholder artist filled")
	assert.Equal(t, "OK Computer", s.Album)
	assert.Equal(t, 1997, s.Year)
	assert.Equal(t, 0.93, s.ConfidenceScore)
	assert.Equal(t, SourceInternet, s.MetadataSource)
}

func TestApplyManualOverwrites(t *testing.T) {
	s := Song{
		Title:      "Wrong Title",
		Artist:     "Wrong Artist",
		IsEnhanced: true,
	}
	changed := Apply(&s, MetadataResult{
		Title:  "Right Title",
		Artist: "Right Artist",
		Score:  1,
		Trust:  SourceManual,
	})

	require.True(t, changed)
	assert.Equal(t, "Right Title", s.Title)
	assert.Equal(t, "Right Artist", s.Artist)
	assert.Equal(t, SourceManual, s.MetadataSource)
}

func TestApplyLocalNeverTouchesLyrics(t *testing.T) {
	s := Song{Lyrics: ""}
	Apply(&s, MetadataResult{Lyrics: "some lyrics", Trust: SourceLocal})
	assert.Empty(t, s.Lyrics)

	Apply(&s, MetadataResult{Lyrics: "some lyrics", Trust: SourceInternet})
	assert.Equal(t, "some lyrics", s.Lyrics)
}

func TestApplyNoChange(t *testing.T) {
	s := Song{
		Title:           "Airbag",
		Artist:          "Radiohead",
		Album:           "OK Computer",
		IsEnhanced:      true,
		ConfidenceScore: 0.95,
		MetadataSource:  SourceInternet,
	}
	changed := Apply(&s, MetadataResult{
		Title: "Airbag (Live)", Artist: "Someone Else",
		Score: 0.86, Trust: SourceInternet,
	})

	assert.False(t, changed)
	assert.Equal(t, 0.95, s.ConfidenceScore, "confidence untouched when nothing applied")
}

func TestMergePreservesEnhanced(t *testing.T) {
	prev := Song{
		ID: "abc", Title: "Paranoid Android", Artist: "Radiohead",
		Album: "OK Computer", Composer: "Radiohead", Year: 1997,
		CoverURI: "file:///cache/art.jpg", Lyrics: "rain down",
		ConfidenceScore: 0.91, MetadataSource: SourceInternet,
		IsEnhanced: true,
		Size:       100, ModificationTime: 1000,
	}
	scanned := Song{
		ID: "abc", Title: "02 paranoid android", Filename: "02 paranoid android.mp3",
		URI: "file:///music/02 paranoid android.mp3",
		Size: 120, ModificationTime: 2000,
	}

	merged := Merge(&prev, scanned)
	assert.Equal(t, "Paranoid Android", merged.Title)
	assert.Equal(t, "Radiohead", merged.Artist)
	assert.Equal(t, "file:///cache/art.jpg", merged.CoverURI)
	assert.Equal(t, "rain down", merged.Lyrics)
	assert.Equal(t, 0.91, merged.ConfidenceScore)
	assert.True(t, merged.IsEnhanced)

	// filesystem fields always track the scan
	assert.Equal(t, int64(120), merged.Size)
	assert.Equal(t, int64(2000), merged.ModificationTime)
	assert.Equal(t, "file:///music/02 paranoid android.mp3", merged.URI)
}

func TestMergeUnenhancedTakesScan(t *testing.T) {
	prev := Song{ID: "abc", Title: "old name", IsEnhanced: false}
	scanned := Song{ID: "abc", Title: "new name"}
	assert.Equal(t, "new name", Merge(&prev, scanned).Title)
}

func TestMergeAll(t *testing.T) {
	prev := []Song{
		{ID: "keep", Title: "Enhanced Title", IsEnhanced: true},
		{ID: "gone", Title: "Deleted Song"},
	}
	scanned := []Song{
		{ID: "keep", Title: "raw scan title"},
		{ID: "new", Title: "brand new"},
	}

	merged := MergeAll(prev, scanned)
	require.Len(t, merged, 2)
	assert.Equal(t, "Enhanced Title", merged[0].Title)
	assert.Equal(t, "brand new", merged[1].Title)
	assert.False(t, merged[1].IsEnhanced)
}

func TestOrganize(t *testing.T) {
	songs := []Song{
		{ID: "1", Title: "Track 10", Composer: "A R Rahman", Album: "Roja", CoverURI: "file:///c/roja.jpg", Year: 1992},
		{ID: "2", Title: "Track 2", Composer: "a r rahman", Album: "ROJA"},
		{ID: "3", Title: "Something", Composer: "", Album: ""},
		{ID: "4", Title: "Bombay Theme", Composer: "A R Rahman", Album: "Bombay"},
	}

	directors := Organize(songs)
	require.Len(t, directors, 2)

	rahman := directors[0]
	assert.Equal(t, "A R Rahman", rahman.DisplayTitle)
	require.Len(t, rahman.Movies, 2)
	assert.Equal(t, "Bombay", rahman.Movies[0].DisplayTitle)
	assert.Equal(t, "Roja", rahman.Movies[1].DisplayTitle)

	// case variants of the same album group together, natural sort applies
	roja := rahman.Movies[1]
	require.Len(t, roja.Songs, 2)
	assert.Equal(t, "Track 2", roja.Songs[0].Title)
	assert.Equal(t, "Track 10", roja.Songs[1].Title)
	assert.Equal(t, "file:///c/roja.jpg", roja.ArtworkURI)
	assert.Equal(t, 1992, roja.Year)
	assert.Equal(t, "file:///c/roja.jpg", rahman.PhotoURI)

	unknown := directors[1]
	assert.Equal(t, "Unknown", unknown.DisplayTitle)
	require.Len(t, unknown.Movies, 1)
	assert.Equal(t, "Unknown Album", unknown.Movies[0].DisplayTitle)
}
