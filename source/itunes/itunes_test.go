package itunes_test

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/muse/clientutil"
	"go.senan.xyz/muse/library"
	"go.senan.xyz/muse/source/itunes"
)

//go:embed testdata
var responses embed.FS

func TestSearch(t *testing.T) {
	var client itunes.Client
	client.BaseURL = "file:///search"
	client.HTTPClient = clientutil.FSClient(responses, "testdata")

	results, err := client.Search(context.Background(), library.Song{
		Title: "Karma Police", Artist: "Radiohead",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "Karma Police", first.Title)
	assert.Equal(t, "Radiohead", first.Artist)
	assert.Equal(t, "OK Computer", first.Album)
	assert.Equal(t, 261960, first.DurationMS)
	assert.Equal(t, 1997, first.Year)
	assert.Equal(t, itunes.SourceName, first.SourceName)
	assert.Equal(t, library.SourceInternet, first.Trust)
	assert.Contains(t, first.ArtworkURI, "600x600", "thumbnail URL upgraded")
}

func TestSearchMiss(t *testing.T) {
	var client itunes.Client
	client.BaseURL = "file:///no-such-response"
	client.HTTPClient = clientutil.FSClient(responses, "testdata")

	_, err := client.Search(context.Background(), library.Song{Title: "x"})
	assert.Error(t, err)
}
