package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/muse/library"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func TestScanDevice(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"A R Rahman/Roja/01 - Chinna Chinna Aasai.mp3",
		"A R Rahman/Roja/cover.jpg",
		"Download/random_song.m4a",
		"notes.txt",
		".hidden/secret.mp3",
	)

	s := &FS{Roots: []string{root}}
	songs, err := s.ScanDevice(context.Background())
	require.NoError(t, err)
	require.Len(t, songs, 2)

	// sorted by URI, so the Rahman track comes first
	rahman := songs[0]
	assert.Equal(t, "chinna chinna aasai", rahman.Title)
	assert.Equal(t, "A R Rahman", rahman.Composer)
	assert.Equal(t, "Roja", rahman.Album)
	assert.Equal(t, "01 - Chinna Chinna Aasai.mp3", rahman.Filename)
	assert.Equal(t, library.SourceLocal, rahman.MetadataSource)
	assert.False(t, rahman.IsEnhanced)
	assert.NotEmpty(t, rahman.ID)
	assert.Equal(t, int64(1), rahman.Size)

	// generic bucket names never become album or composer guesses
	download := songs[1]
	assert.Equal(t, "random song", download.Title)
	assert.Empty(t, download.Album)
}

func TestScanDeviceStableIDs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.mp3", "b.flac")

	s := &FS{Roots: []string{root}}
	first, err := s.ScanDevice(context.Background())
	require.NoError(t, err)
	second, err := s.ScanDevice(context.Background())
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestScanDeviceMissingRoot(t *testing.T) {
	s := &FS{Roots: []string{filepath.Join(t.TempDir(), "nope")}}
	_, err := s.ScanDevice(context.Background())
	assert.Error(t, err)
}

func TestScanDeviceCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.mp3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &FS{Roots: []string{root}}
	_, err := s.ScanDevice(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPathGuess(t *testing.T) {
	assert.Equal(t, "Roja", pathGuess("Roja"))
	assert.Empty(t, pathGuess("Download"))
	assert.Empty(t, pathGuess("MUSIC"))
	assert.Empty(t, pathGuess("0"))
	assert.Empty(t, pathGuess(""))
	assert.Empty(t, pathGuess("."))
}
