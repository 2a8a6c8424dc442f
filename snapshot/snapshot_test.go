package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/muse/library"
)

func TestLoadAbsentFile(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "nope", "library.json")}
	snap, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Songs)
	assert.Empty(t, snap.Directors)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "deep", "library.json")}

	snap := library.Snapshot{
		Timestamp: 1700000000000,
		Songs: []library.Song{
			{ID: "a", Title: "Everything in Its Right Place", IsEnhanced: true, ConfidenceScore: 0.92},
			{ID: "b", Title: "Kid A"},
		},
		Directors: []library.MusicDirector{
			{Name: "radiohead", DisplayTitle: "Radiohead"},
		},
	}
	require.NoError(t, f.Save(snap))

	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	// no temp file left behind
	_, err = os.Stat(f.Path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSaveReplacesAtomically(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "library.json")}

	require.NoError(t, f.Save(library.Snapshot{Songs: []library.Song{{ID: "old"}}}))
	require.NoError(t, f.Save(library.Snapshot{Songs: []library.Song{{ID: "new"}}}))

	got, err := f.Load()
	require.NoError(t, err)
	require.Len(t, got.Songs, 1)
	assert.Equal(t, "new", got.Songs[0].ID)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	f := &File{Path: path}
	_, err := f.Load()
	assert.Error(t, err)
}
